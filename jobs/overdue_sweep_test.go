package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	updated int64
	err     error
	calls   int
	asOf    time.Time
}

func (f *fakeMarker) MarkOverdue(_ context.Context, asOf time.Time) (int64, error) {
	f.calls++
	f.asOf = asOf
	return f.updated, f.err
}

func TestOverdueSweepHandler(t *testing.T) {
	marker := &fakeMarker{updated: 3}
	handler := NewOverdueSweepHandler(marker, slog.Default())

	before := time.Now()
	err := handler(context.Background(), NewOverdueSweepTask())
	require.NoError(t, err)
	assert.Equal(t, 1, marker.calls)
	assert.False(t, marker.asOf.Before(before))
}

func TestOverdueSweepHandlerPropagatesError(t *testing.T) {
	marker := &fakeMarker{err: errors.New("db down")}
	handler := NewOverdueSweepHandler(marker, slog.Default())

	err := handler(context.Background(), NewOverdueSweepTask())
	assert.Error(t, err)
	assert.Equal(t, 1, marker.calls)
}
