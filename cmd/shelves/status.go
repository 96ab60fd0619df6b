package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0viii0viii/shelves/internal/logger"
	"github.com/0viii0viii/shelves/internal/migrator"
)

// printStatus writes one line per version, or a JSON array in JSON mode.
func printStatus(cmd *cobra.Command, log *logger.Logger, items []migrator.StatusItem) {
	out := cmd.OutOrStdout()
	if log.JSONEnabled() {
		_ = json.NewEncoder(out).Encode(items)
		return
	}
	for _, it := range items {
		applied := "-"
		if it.AppliedAt != nil {
			applied = it.AppliedAt.UTC().Format(time.RFC3339)
		}
		sum := it.Checksum
		if len(sum) > 12 {
			sum = sum[:12]
		}
		fmt.Fprintf(out, "%4d %-24s %-8s %-20s %s\n", it.Version, it.Description, it.State, applied, sum)
	}
}
