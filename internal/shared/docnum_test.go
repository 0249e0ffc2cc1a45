package shared

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*string); ok {
		*p = r.value
	}
	return nil
}

type fakeQuerier struct {
	row fakeRow
}

func (q fakeQuerier) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return q.row
}

func TestNextDocNumber(t *testing.T) {
	q := fakeQuerier{row: fakeRow{value: "INV000041"}}
	number, err := NextDocNumber(context.Background(), q, "invoices", "invoice_number", 1, "INV")
	require.NoError(t, err)
	assert.Equal(t, "INV000042", number)
}

func TestNextDocNumberFirstDocument(t *testing.T) {
	q := fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	number, err := NextDocNumber(context.Background(), q, "invoices", "invoice_number", 1, "INV")
	require.NoError(t, err)
	assert.Equal(t, "INV000001", number)
}

func TestNextDocNumberMalformed(t *testing.T) {
	q := fakeQuerier{row: fakeRow{value: "INV-oops"}}
	_, err := NextDocNumber(context.Background(), q, "invoices", "invoice_number", 1, "INV")
	assert.Error(t, err)
}

func TestFormatDocNumber(t *testing.T) {
	assert.Equal(t, "PO000001", FormatDocNumber("PO", 1))
	assert.Equal(t, "DEL000100", FormatDocNumber("DEL", 100))
	assert.Equal(t, "INV123456", FormatDocNumber("INV", 123456))
	// padding keeps the descending lexicographic lookup correct
	assert.Less(t, FormatDocNumber("INV", 9), FormatDocNumber("INV", 10))
}
