package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrDuplicateName, "class name already exists")

	assert.True(t, errors.Is(err, ErrDuplicateName))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "class name already exists", err.Message)
	assert.Equal(t, "name already exists", ErrDuplicateName.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("load: %w", sql.ErrConnDone))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.True(t, errors.Is(appErr, sql.ErrConnDone))
}

func TestFromErrorFindsWrappedTyped(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", Clone(ErrEmptyInput, "class name is required"))

	appErr := FromError(wrapped)
	assert.Equal(t, "EMPTY_INPUT", appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}
