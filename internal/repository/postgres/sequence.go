package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/model"
)

// NextTx increments the daily counter for (doc_type, prefix, day) and returns
// the new value. The upsert takes a row lock held until the surrounding
// transaction commits, so two creators of the same series can never read the
// same value; the second blocks, then sees the first's increment.
func (r *sequenceRepository) NextTx(ctx context.Context, tx *sqlx.Tx, docType model.DocumentType, prefix string, day time.Time) (int, error) {
	query := `
		INSERT INTO document_sequences (doc_type, prefix, seq_date, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (doc_type, prefix, seq_date)
		DO UPDATE SET last_value = document_sequences.last_value + 1
		RETURNING last_value
	`
	var value int
	if err := tx.GetContext(ctx, &value, query, docType, prefix, day.Format("2006-01-02")); err != nil {
		return 0, fmt.Errorf("failed to advance document sequence: %w", err)
	}
	return value, nil
}
