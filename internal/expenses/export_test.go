package expenses

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	desc := "diesel for delivery truck"
	expenses := []Expense{
		{
			ExpenseDate:   time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
			Category:      "Transport",
			Description:   &desc,
			Amount:        125000.50,
			PaymentMethod: "UPI",
		},
		{
			ExpenseDate:   time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
			Category:      "Rent",
			Amount:        30000,
			PaymentMethod: "Bank Transfer",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, expenses))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Date", "Category", "Description", "Amount", "Payment Method", "Reference", "Notes"}, rows[0])
	assert.Equal(t, "2026-02-14", rows[1][0])
	assert.Equal(t, "Transport", rows[1][1])
	assert.Equal(t, "diesel for delivery truck", rows[1][2])
	// Indian digit grouping
	assert.Equal(t, "1,25,000.50", rows[1][3])
	assert.Equal(t, "30,000.00", rows[2][3])
	// nil optionals render empty, not "<nil>"
	assert.Equal(t, "", rows[2][2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
