package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewParseError("trusted", "row 3: adv_user_cnt is not numeric", errors.New("can't convert abc to decimal"))
	assert.Equal(t, "PARSE [trusted]: row 3: adv_user_cnt is not numeric: can't convert abc to decimal", err.Error())

	pre := NewPreconditionError("refined", "trusted_dental is empty")
	assert.Equal(t, "PRECONDITION [refined]: trusted_dental is empty", pre.Error())

	nf := NewNotFoundError("provider 1 not found")
	assert.Equal(t, "NOT_FOUND: provider 1 not found", nf.Error())
}

func TestAppError_UnwrapAndIsType(t *testing.T) {
	root := errors.New("connection reset")
	err := fmt.Errorf("run pipeline: %w", NewStageError("ingest", "failed to insert batch", root))

	assert.True(t, errors.Is(err, root))
	assert.True(t, IsType(err, ErrorTypeInternal))
	assert.False(t, IsType(err, ErrorTypeParse))
	assert.False(t, IsType(root, ErrorTypeInternal))
}
