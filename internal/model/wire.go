package model

import "time"

// PushRequest is the body of a push call.
type PushRequest struct {
	Operations []SyncOperation `json:"operations"`
}

// PushResponse carries one result per operation, in request order.
type PushResponse struct {
	Results      []OperationResult `json:"results"`
	SuccessCount int               `json:"successCount"`
	ErrorCount   int               `json:"errorCount"`
	ServerTime   time.Time         `json:"serverTime"`
}

// PullRequest asks for everything changed after Cursor. A nil or empty
// cursor means "from the beginning". EntityClasses restricts the classes
// returned; empty means all.
type PullRequest struct {
	Cursor        *string       `json:"cursor"`
	EntityClasses []EntityClass `json:"entityClasses,omitempty"`
	Limit         int           `json:"limit,omitempty"`
}

// Records groups pulled records by entity class. Slices are never nil so
// every class is present on the wire.
type Records struct {
	Group []Group `json:"group"`
	Item  []Item  `json:"item"`
	Order []Order `json:"order"`
}

// NewRecords returns Records with empty, non-nil slices.
func NewRecords() Records {
	return Records{Group: []Group{}, Item: []Item{}, Order: []Order{}}
}

// Len is the total number of records across classes.
func (r Records) Len() int {
	return len(r.Group) + len(r.Item) + len(r.Order)
}

// PullResponse is the answer to a pull. Cursor is the token to send on the
// next pull; when HasMore is set the client pulls again right away.
type PullResponse struct {
	Records    Records   `json:"records"`
	DeletedIDs []string  `json:"deletedIds"`
	ServerTime time.Time `json:"serverTime"`
	Cursor     string    `json:"cursor"`
	HasMore    bool      `json:"hasMore"`
}

// FullRequest is a push followed by a pull from Cursor.
type FullRequest struct {
	Operations    []SyncOperation `json:"operations"`
	Cursor        *string         `json:"cursor"`
	EntityClasses []EntityClass   `json:"entityClasses,omitempty"`
	Limit         int             `json:"limit,omitempty"`
}

// FullResponse is the union of the push and pull responses.
type FullResponse struct {
	Results      []OperationResult `json:"results"`
	SuccessCount int               `json:"successCount"`
	ErrorCount   int               `json:"errorCount"`
	Records      Records           `json:"records"`
	DeletedIDs   []string          `json:"deletedIds"`
	ServerTime   time.Time         `json:"serverTime"`
	Cursor       string            `json:"cursor"`
	HasMore      bool              `json:"hasMore"`
}

// PushRequest returns the push half of a full sync.
func (r FullRequest) PushRequest() PushRequest {
	return PushRequest{Operations: r.Operations}
}

// PullRequest returns the pull half of a full sync.
func (r FullRequest) PullRequest() PullRequest {
	return PullRequest{Cursor: r.Cursor, EntityClasses: r.EntityClasses, Limit: r.Limit}
}

// Merge combines a push and a pull response into a FullResponse.
func Merge(push PushResponse, pull PullResponse) FullResponse {
	return FullResponse{
		Results:      push.Results,
		SuccessCount: push.SuccessCount,
		ErrorCount:   push.ErrorCount,
		Records:      pull.Records,
		DeletedIDs:   pull.DeletedIDs,
		ServerTime:   pull.ServerTime,
		Cursor:       pull.Cursor,
		HasMore:      pull.HasMore,
	}
}
