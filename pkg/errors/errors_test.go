package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsCodeForErrorsIs(t *testing.T) {
	err := Clone(ErrSlotNoLongerAvailable, "slot 09:00 taken")

	assert.True(t, stdErrors.Is(err, ErrSlotNoLongerAvailable))
	assert.False(t, stdErrors.Is(err, ErrNotFound))
	assert.Equal(t, "slot 09:00 taken", err.Message)
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestWrappedThroughFmtStillMatches(t *testing.T) {
	err := fmt.Errorf("book: %w", Clone(ErrValidation, "bad date"))

	assert.True(t, stdErrors.Is(err, ErrValidation))
	assert.Equal(t, ErrValidation.Code, FromError(err).Code)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
	assert.Nil(t, FromError(nil))
}

func TestPersistenceWrap(t *testing.T) {
	appErr := Persistence(sql.ErrConnDone, "")

	assert.Equal(t, ErrPersistence.Code, appErr.Code)
	assert.Equal(t, ErrPersistence.Message, appErr.Message)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}
