package migrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

type Plan struct {
	Pending []Migration // to apply in order
	Applied map[int64]Row
	All     []Migration
}

var (
	ErrDrift = errors.New("checksum drift detected")
)

// Unknown lists recorded versions that are absent from All, which happens
// when a newer build migrated the file and an older build opens it.
func (p *Plan) Unknown() []int64 {
	known := make(map[int64]struct{}, len(p.All))
	for _, m := range p.All {
		known[m.Version] = struct{}{}
	}
	var out []int64
	for v := range p.Applied {
		if _, ok := known[v]; !ok {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// BuildPlan compares the registry with the bookkeeping table.
// Any version without a record is pending, even one older than the newest
// recorded version.
func BuildPlan(ctx context.Context, all []Migration, st *Storage) (*Plan, error) {
	if err := Validate(all, KindUp); err != nil {
		return nil, err
	}
	applied, err := st.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]Migration, 0, len(all))
	for _, m := range all {
		row, ok := applied[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if sum := m.Checksum(); row.Checksum != sum {
			return nil, fmt.Errorf("%w: version %d (db=%s registry=%s)", ErrDrift, m.Version, short(row.Checksum), short(sum))
		}
	}
	return &Plan{Pending: pending, Applied: applied, All: all}, nil
}

func short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
