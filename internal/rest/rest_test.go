package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adamkim-dev/tripsaver/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type detailedErr struct{}

func (detailedErr) Error() string { return "trip is not settled" }
func (detailedErr) Unwrap() error { return apperr.ErrState }
func (detailedErr) Details() any  { return []string{"alice"} }

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Validation("amount must be positive"), http.StatusBadRequest},
		{"not found", fmt.Errorf("get: %w", apperr.New(apperr.ErrNotFound, "trip not found")), http.StatusNotFound},
		{"state", apperr.New(apperr.ErrState, "trip is not active"), http.StatusConflict},
		{"dependency", apperr.Dependency("query", errors.New("eof")), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("should include details when error carries them", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteError(w, fmt.Errorf("close trip: %w", detailedErr{}))

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp struct {
			Error   string   `json:"error"`
			Details []string `json:"details"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "close trip: trip is not settled", resp.Error)
		assert.Equal(t, []string{"alice"}, resp.Details)
	})
}
