package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func SHA256(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Statement hashes a SQL statement after collapsing whitespace runs, so that
// re-indenting a shipped migration is not reported as drift.
func Statement(sql string) string {
	return SHA256([]byte(strings.Join(strings.Fields(sql), " ")))
}
