package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

func TestSyncError_Classification(t *testing.T) {
	wrapped := fmt.Errorf("push: %w", NewValidationError("name", "required"))

	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.True(t, IsNotFound(NewNotFoundError(model.ClassItem, "x")))
	assert.True(t, IsUnauthorized(NewUnauthorizedError("no token")))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("disk full")))
	assert.False(t, IsConflict(errors.New("disk full")))
}

func TestSyncError_Message(t *testing.T) {
	err := &SyncError{Code: ErrCodeValidation, Field: "quantity", Message: "must be >= 0"}
	assert.Equal(t, "VALIDATION_ERROR: quantity: must be >= 0", err.Error())

	cause := errors.New("locked")
	err = &SyncError{Code: ErrCodeInternal, Message: "write", Err: cause}
	assert.ErrorIs(t, err, cause)
}

func TestToOperationError_HidesInternalCause(t *testing.T) {
	oe := toOperationError(errors.New("sqlite: database is locked"))
	assert.Equal(t, "INTERNAL", oe.Code)
	assert.Equal(t, "internal error", oe.Message)

	oe = toOperationError(NewValidationError("status", "bad"))
	assert.Equal(t, &model.OperationError{Code: "VALIDATION_ERROR", Message: "bad", Field: "status"}, oe)
}

func TestMultiSink_FansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	MultiSink{a, LogSink{}, b}.Emit(context.Background(), Event{Action: "create", Seq: 1})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}
