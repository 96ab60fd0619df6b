package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/0viii0viii/shelves/internal/db"
)

// Progress receives "start", "success" and "error" stages for each migration.
type Progress func(stage string, m Migration, row *Row, err error)

type Runner struct {
	DB        *sql.DB
	Storage   *Storage
	AppliedBy string

	now func() time.Time
}

func NewRunner(database *sql.DB, table string, appliedBy string) *Runner {
	return &Runner{
		DB:        database,
		Storage:   &Storage{DB: database, Table: table},
		AppliedBy: appliedBy,
		now:       time.Now,
	}
}

func defaultAppliedBy() string {
	u, err := user.Current()
	if err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func (r *Runner) Ensure(ctx context.Context) error {
	if err := db.EnsureTable(ctx, r.DB, r.Storage.Table); err != nil {
		return err
	}
	if strings.TrimSpace(r.AppliedBy) == "" {
		r.AppliedBy = defaultAppliedBy()
	}
	return nil
}

// Up brings the database to the newest version in all. Running it against an
// up-to-date database changes nothing.
func (r *Runner) Up(ctx context.Context, all []Migration, progress Progress) ([]Row, error) {
	if err := r.Ensure(ctx); err != nil {
		return nil, err
	}
	plan, err := BuildPlan(ctx, all, r.Storage)
	if err != nil {
		return nil, err
	}
	return r.ApplyUp(ctx, plan.Pending, false, progress)
}

// ApplyUp runs each pending migration in its own transaction together with its
// bookkeeping row. On failure that version is rolled back and the versions
// applied before it stay in place.
func (r *Runner) ApplyUp(ctx context.Context, pending []Migration, dryRun bool, progress Progress) ([]Row, error) {
	applied := make([]Row, 0, len(pending))
	maxOrder, err := r.Storage.MaxExecutionOrder(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range pending {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		maxOrder++
		row := Row{
			Version:        m.Version,
			Description:    m.Description,
			Checksum:       m.Checksum(),
			AppliedAt:      r.now(),
			AppliedBy:      r.AppliedBy,
			ExecutionOrder: maxOrder,
		}
		if progress != nil {
			progress("start", m, &row, nil)
		}

		if dryRun {
			if progress != nil {
				progress("success", m, &row, nil)
			}
			applied = append(applied, row)
			continue
		}

		if err := r.applyOne(ctx, m, &row); err != nil {
			if progress != nil {
				progress("error", m, &row, err)
			}
			return applied, fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if progress != nil {
			progress("success", m, &row, nil)
		}
		applied = append(applied, row)
	}
	return applied, nil
}

func (r *Runner) applyOne(ctx context.Context, m Migration, row *Row) error {
	start := r.now()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	row.DurationMS = r.now().Sub(start).Milliseconds()
	if err := r.Storage.Insert(ctx, tx, *row); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}

// Down reverts the newest n recorded versions using the matching rollbacks.
// n <= 0 reverts every recorded version. With dryRun nothing is executed.
func (r *Runner) Down(ctx context.Context, n int, rollbacks []Migration, dryRun bool, progress Progress) ([]Row, error) {
	if err := Validate(rollbacks, KindDown); err != nil {
		return nil, err
	}
	if err := r.Ensure(ctx); err != nil {
		return nil, err
	}
	rows, err := r.LastApplied(ctx, n)
	if err != nil {
		return nil, err
	}
	lookup := make(map[int64]Migration, len(rollbacks))
	for _, m := range rollbacks {
		lookup[m.Version] = m
	}
	if err := r.ApplyDown(ctx, rows, lookup, dryRun, progress); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Runner) ApplyDown(ctx context.Context, toRevert []Row, lookup map[int64]Migration, dryRun bool, progress Progress) error {
	for i := range toRevert {
		row := toRevert[i]
		m, ok := lookup[row.Version]
		if !ok {
			return fmt.Errorf("missing rollback for version %d (%s)", row.Version, row.Description)
		}
		if progress != nil {
			progress("start", m, &row, nil)
		}
		if dryRun {
			if progress != nil {
				progress("success", m, &row, nil)
			}
			continue
		}
		if err := r.revertOne(ctx, m); err != nil {
			if progress != nil {
				progress("error", m, &row, err)
			}
			return fmt.Errorf("rollback %d (%s) failed: %w", row.Version, row.Description, err)
		}
		if progress != nil {
			progress("success", m, &row, nil)
		}
	}
	return nil
}

func (r *Runner) revertOne(ctx context.Context, m Migration) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	// Remove record to indicate "not applied"
	if err := r.Storage.Delete(ctx, tx, m.Version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// LastApplied returns up to n recorded versions, newest first. n <= 0 means all.
func (r *Runner) LastApplied(ctx context.Context, n int) ([]Row, error) {
	if n <= 0 {
		n = -1 // SQLite: no limit
	}
	return r.Storage.Recent(ctx, n)
}

// Repair rewrites stored checksums of recorded versions to match all.
// It is the escape hatch after an intentional, behaviour-neutral edit of a
// shipped statement.
func (r *Runner) Repair(ctx context.Context, all []Migration, dryRun bool) (int, error) {
	applied, err := r.Storage.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, m := range all {
		row, ok := applied[m.Version]
		if !ok {
			continue // pending; nothing to repair
		}
		sum := m.Checksum()
		if strings.EqualFold(row.Checksum, sum) {
			continue
		}
		changed++
		if dryRun {
			continue
		}
		if err := r.Storage.SetChecksum(ctx, m.Version, sum); err != nil {
			return changed - 1, err
		}
	}
	return changed, nil
}

// State values reported by Status.
const (
	StateApplied = "applied"
	StatePending = "pending"
	StateDrift   = "drift"
	StateUnknown = "unknown"
)

type StatusItem struct {
	Version     int64      `json:"version"`
	Description string     `json:"description"`
	Checksum    string     `json:"checksum"`
	State       string     `json:"state"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
}

// Status reports every registry version and every recorded version the
// registry does not know, in version order.
func (r *Runner) Status(ctx context.Context, all []Migration) ([]StatusItem, error) {
	if err := r.Ensure(ctx); err != nil {
		return nil, err
	}
	applied, err := r.Storage.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StatusItem, 0, len(all))
	for _, m := range all {
		it := StatusItem{Version: m.Version, Description: m.Description, Checksum: m.Checksum(), State: StatePending}
		if row, ok := applied[m.Version]; ok {
			at := row.AppliedAt
			it.AppliedAt = &at
			it.State = StateApplied
			if row.Checksum != it.Checksum {
				it.State = StateDrift
			}
		}
		out = append(out, it)
	}
	plan := &Plan{Applied: applied, All: all}
	for _, v := range plan.Unknown() {
		row := applied[v]
		at := row.AppliedAt
		out = append(out, StatusItem{Version: v, Description: row.Description, Checksum: row.Checksum, State: StateUnknown, AppliedAt: &at})
	}
	return out, nil
}

// Pending counts versions of all that are not recorded yet.
func (r *Runner) Pending(ctx context.Context, all []Migration) (int, error) {
	items, err := r.Status(ctx, all)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, it := range items {
		if it.State == StatePending {
			n++
		}
	}
	return n, nil
}
