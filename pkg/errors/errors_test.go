package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("save: %w", Clone(ErrFinalized, "only drafts"))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrFinalized.Code, appErr.Code)
	assert.Equal(t, "only drafts", appErr.Message)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
}

func TestWithDetailsCopies(t *testing.T) {
	base := Wrap(errors.New("bad"), ErrValidation.Code, ErrValidation.Status, "invalid")
	first := WithDetails(base, "fields", []string{"rooms[0].capacity"})
	second := WithDetails(first, "reason", "exhausted")

	assert.Nil(t, base.Details)
	require.Len(t, first.Details, 1)
	assert.Len(t, second.Details, 2)
	assert.ErrorContains(t, second, "bad")
	assert.Nil(t, WithDetails(nil, "k", "v"))
}
