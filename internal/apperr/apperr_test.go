package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("status is required"), http.StatusBadRequest},
		{"not found", NotFound("lead"), http.StatusNotFound},
		{"auth", Auth("token required"), http.StatusUnauthorized},
		{"forbidden", Forbidden("admin only"), http.StatusForbidden},
		{"persistence", Persistence("could not save", errors.New("conn reset")), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
		{"partial import", &PartialImportError{Batch: 2, RowsCommitted: 100, Err: errors.New("x")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("update lead 9: %w", NotFound("lead"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "lead not found", Message(err))
}

func TestPersistenceHidesCause(t *testing.T) {
	cause := errors.New("pq: relation does not exist")
	err := Persistence("could not load leads", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not load leads", Message(err))
	assert.Equal(t, "internal server error", Message(cause))
}

func TestPartialImport(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := fmt.Errorf("import: %w", &PartialImportError{EventID: 3, Batch: 4, RowsCommitted: 300, Err: cause})

	assert.ErrorIs(t, err, ErrPartialImport)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindPartialImport, KindOf(err))
	assert.Contains(t, Message(err), "300 rows")
}
