package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", Clone(ErrAlreadyResolved, "request already approved"))

	appErr := FromError(wrapped)
	assert.Equal(t, ErrAlreadyResolved.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "request already approved", appErr.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestIsMatchesOnCode(t *testing.T) {
	err := Persistence(errors.New("connection reset"), "failed to upsert attendance")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")

	assert.ErrorIs(t, Upstream(errors.New("timeout"), "sms"), ErrUpstreamUnavailable)
}
