package store

import (
	"context"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// StaticReferenceTable implements ReferenceTable from a fixed set of rows.
// The published benchmark table changes on a quarterly cadence at most, so a
// process restart on refresh is acceptable.
type StaticReferenceTable struct {
	rows map[string]governance.IndustryBenchmark
}

// NewStaticReferenceTable creates a reference table from the given rows
func NewStaticReferenceTable(rows []governance.IndustryBenchmark) *StaticReferenceTable {
	t := &StaticReferenceTable{rows: make(map[string]governance.IndustryBenchmark, len(rows))}
	for _, row := range rows {
		t.rows[row.Industry+"|"+row.Metric] = row
	}
	return t
}

// Lookup returns the reference row, or shared.ErrNotFound
func (t *StaticReferenceTable) Lookup(ctx context.Context, industry, metric string) (governance.IndustryBenchmark, error) {
	row, ok := t.rows[industry+"|"+metric]
	if !ok {
		return governance.IndustryBenchmark{}, shared.ErrNotFound
	}
	return row, nil
}

// Ensure StaticReferenceTable implements ReferenceTable
var _ governance.ReferenceTable = (*StaticReferenceTable)(nil)
