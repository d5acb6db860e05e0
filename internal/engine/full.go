package engine

import (
	"context"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// Full pushes the request's operations and then pulls from the request's
// cursor. Because the pull starts from the cursor the client held before
// the push, the response includes the client's own writes.
//
// The cursor and class filter are checked before the push so that a bad
// pull half never leaves a push applied.
func (e *Engine) Full(ctx context.Context, accountID string, req model.FullRequest) (model.FullResponse, error) {
	if err := e.checkPush(accountID, req.Operations); err != nil {
		return model.FullResponse{}, err
	}
	cursor, err := model.ParseCursorPtr(req.Cursor)
	if err != nil {
		return model.FullResponse{}, NewValidationError("cursor", err.Error())
	}
	classes, err := checkClasses(req.EntityClasses)
	if err != nil {
		return model.FullResponse{}, err
	}

	push, err := e.Push(ctx, accountID, req.PushRequest())
	if err != nil {
		return model.FullResponse{}, err
	}
	pull, err := e.pull(ctx, accountID, cursor, classes, req.Limit)
	if err != nil {
		return model.FullResponse{}, err
	}
	return model.Merge(push, pull), nil
}
