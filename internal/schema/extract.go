// Package schema extracts a snapshot of a database's structure and renders it
// for humans and for LLM grounding context.
package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/sqlite"
)

// Extract builds an immutable SchemaDescriptor from the gateway: per table the
// ordered columns, foreign-key edges and up to maxSampleRows sample rows.
func Extract(ctx context.Context, gw *sqlite.Gateway, maxSampleRows int) (*domain.SchemaDescriptor, error) {
	tables, err := gw.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	desc := &domain.SchemaDescriptor{ExtractedAt: time.Now()}

	for _, name := range tables {
		columns, err := gw.Columns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to describe table %s: %w", name, err)
		}

		fks, err := gw.ForeignKeys(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to list foreign keys for %s: %w", name, err)
		}

		// Sample failures are not fatal; the table simply has no preview.
		sampleCols, sampleRows, err := gw.SampleRows(ctx, name, maxSampleRows)
		if err != nil {
			sampleCols, sampleRows = nil, nil
		}

		desc.Tables = append(desc.Tables, domain.TableSchema{
			Name:        name,
			Columns:     columns,
			ForeignKeys: fks,
			SampleCols:  sampleCols,
			SampleRows:  sampleRows,
		})
	}

	return desc, nil
}
