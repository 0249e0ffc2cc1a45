package shared

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// docNumWidth is the zero-padded sequence width. The descending lexicographic
// lookup below is only correct while every number for a prefix shares this
// width; callers must not mix widths or change a prefix mid-sequence.
const docNumWidth = 6

// RowQuerier is the single-row query surface needed by NextDocNumber. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so numbering can run inside the same
// transaction that inserts the document.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NextDocNumber returns the next sequential document number for the user and
// prefix, e.g. INV000042 after INV000041. The first document for a prefix
// starts at sequence 1.
func NextDocNumber(ctx context.Context, q RowQuerier, table, column string, userID int64, prefix string) (string, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE user_id = $1 AND %s LIKE $2 ORDER BY %s DESC LIMIT 1`,
		column, table, column, column,
	)

	var last string
	err := q.QueryRow(ctx, query, userID, prefix+"%").Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FormatDocNumber(prefix, 1), nil
		}
		return "", fmt.Errorf("docnum: query last %s: %w", table, err)
	}

	seq, err := parseDocSeq(last, prefix)
	if err != nil {
		return "", err
	}
	return FormatDocNumber(prefix, seq+1), nil
}

// FormatDocNumber renders prefix + zero-padded sequence.
func FormatDocNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, docNumWidth, seq)
}

func parseDocSeq(number, prefix string) (int64, error) {
	suffix := strings.TrimPrefix(number, prefix)
	seq, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("docnum: malformed number %q for prefix %q: %w", number, prefix, err)
	}
	return seq, nil
}
