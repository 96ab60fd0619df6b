package migrator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/0viii0viii/shelves/internal/checksum"
)

// Kind tells forward migrations from rollbacks.
type Kind int

const (
	KindUp Kind = iota + 1
	KindDown
)

func (k Kind) String() string {
	switch k {
	case KindUp:
		return "up"
	case KindDown:
		return "down"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Migration is one versioned schema change.
type Migration struct {
	Version     int64
	Description string
	SQL         string
	Kind        Kind
}

func (m Migration) Checksum() string { return checksum.Statement(m.SQL) }

// Row is a bookkeeping record of an applied version.
type Row struct {
	Version        int64
	Description    string
	Checksum       string
	AppliedAt      time.Time
	AppliedBy      string
	DurationMS     int64
	ExecutionOrder int64
}

var (
	ErrEmptyVersion     = errors.New("migration version must be positive")
	ErrDuplicateVersion = errors.New("duplicate migration version")
	ErrOutOfOrder       = errors.New("migration versions must increase")
	ErrWrongKind        = errors.New("unexpected migration kind")
	ErrEmptyStatement   = errors.New("migration statement is empty")
)

// Validate checks that ms are all of kind and strictly increasing by version.
func Validate(ms []Migration, kind Kind) error {
	seen := make(map[int64]struct{}, len(ms))
	var prev int64
	for i, m := range ms {
		if m.Version <= 0 {
			return fmt.Errorf("%w: index %d has %d", ErrEmptyVersion, i, m.Version)
		}
		if _, dup := seen[m.Version]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateVersion, m.Version)
		}
		seen[m.Version] = struct{}{}
		if i > 0 && m.Version <= prev {
			return fmt.Errorf("%w: %d declared after %d", ErrOutOfOrder, m.Version, prev)
		}
		prev = m.Version
		if m.Kind != kind {
			return fmt.Errorf("%w: version %d is %s, want %s", ErrWrongKind, m.Version, m.Kind, kind)
		}
		if strings.TrimSpace(m.SQL) == "" {
			return fmt.Errorf("%w: version %d", ErrEmptyStatement, m.Version)
		}
	}
	return nil
}
