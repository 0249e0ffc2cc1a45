package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilekart/tilekart/internal/shared"
)

func TestRespondErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrNotAuthenticated, http.StatusUnauthorized},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{shared.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: invoice", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: bad amount", shared.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: invoice number", shared.ErrDuplicate), http.StatusConflict},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: relation invoices does not exist"))

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Error)
}
