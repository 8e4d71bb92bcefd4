package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ludoarena/match-engine/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMapping(t *testing.T) {
	testCases := []struct {
		err      error
		status   int
		wantBody string
	}{
		{fmt.Errorf("%w: minimum entry is 50", match.ErrValidation), http.StatusBadRequest, "validation failed: minimum entry is 50"},
		{fmt.Errorf("%w: not a participant", match.ErrAuthorization), http.StatusForbidden, "not allowed: not a participant"},
		{fmt.Errorf("%w: match x", match.ErrNotFound), http.StatusNotFound, "not found: match x"},
		{fmt.Errorf("%w: stale version", match.ErrConflict), http.StatusConflict, "this match is no longer available"},
		{match.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient funds"},
		{match.ErrMatchesDisabled, http.StatusServiceUnavailable, "matches are currently disabled"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantBody, body["error"])
		})
	}
}
