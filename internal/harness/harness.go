package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/engine"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a stepping clock and sequential ids so that the
// same scenario always produces the same trace.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger

	// lastCursor is the cursor of the most recent pull or full step.
	lastCursor string

	// entities maps an operationId to the entity id its result named.
	entities map[string]string
}

// Option configures a Harness.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	pageSize int
}

// WithLogger sets the harness logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPageSize sets the engine's maximum pull page size.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Create fresh in-memory database
// 2. Execute each step through the engine and check its expect clause
// 3. Evaluate final-state assertions
// 4. Return result with pass/fail, trace, and errors
//
// The returned error is reserved for harness failures. Unmet expectations
// are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	engOpts := []engine.Option{
		engine.WithClock(testutil.NewStepClock(testutil.Epoch, time.Second)),
		engine.WithIDGenerator(testutil.NewSequenceIDs()),
	}
	if o.pageSize > 0 {
		engOpts = append(engOpts, engine.WithPageSize(o.pageSize))
	}

	h := &Harness{
		store:    st,
		engine:   engine.New(st, engOpts...),
		logger:   o.logger,
		entities: make(map[string]string),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		account := step.Account
		if account == "" {
			account = scenario.Account
		}
		if err := h.executeStep(ctx, i, account, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Name, err)
		}
	}

	for _, msg := range h.evaluateAssertions(ctx, scenario) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step, appends its trace and records unmet
// expectations.
func (h *Harness) executeStep(ctx context.Context, index int, account string, step Step, result *Result) error {
	trace := StepTrace{Name: step.Name, Account: account}
	label := fmt.Sprintf("steps[%d] %s", index, step.Name)

	var (
		results []model.OperationResult
		pulled  *model.PullResponse
		callErr error
	)

	switch {
	case step.Push != nil:
		trace.Kind = KindPush
		ops, err := operations(step.Push)
		if err != nil {
			return err
		}
		resp, err := h.engine.Push(ctx, account, model.PushRequest{Operations: ops})
		callErr = err
		results = resp.Results

	case step.Pull != nil:
		trace.Kind = KindPull
		cursor := h.cursor(step.Pull.Cursor)
		resp, err := h.engine.Pull(ctx, account, model.PullRequest{
			Cursor:        &cursor,
			EntityClasses: classes(step.Pull.Classes),
			Limit:         step.Pull.Limit,
		})
		callErr = err
		if err == nil {
			pulled = &resp
		}

	case step.Full != nil:
		trace.Kind = KindFull
		ops, err := operations(step.Full.Operations)
		if err != nil {
			return err
		}
		cursor := h.cursor(step.Full.Cursor)
		resp, err := h.engine.Full(ctx, account, model.FullRequest{
			Operations:    ops,
			Cursor:        &cursor,
			EntityClasses: classes(step.Full.Classes),
			Limit:         step.Full.Limit,
		})
		callErr = err
		if err == nil {
			results = resp.Results
			pulled = &model.PullResponse{
				Records:    resp.Records,
				DeletedIDs: resp.DeletedIDs,
				Cursor:     resp.Cursor,
				HasMore:    resp.HasMore,
			}
		}
	}

	if callErr != nil {
		trace.Error = string(engine.CodeOf(callErr))
	}
	for _, r := range results {
		rt := ResultTrace{
			OperationID: r.OperationID,
			Success:     r.Success,
			EntityID:    r.EntityID,
			Deleted:     r.Deleted,
		}
		if r.Error != nil {
			rt.Code = r.Error.Code
			rt.Field = r.Error.Field
		}
		trace.Results = append(trace.Results, rt)
	}
	if pulled != nil {
		trace.Records = &RecordCounts{
			Group: len(pulled.Records.Group),
			Item:  len(pulled.Records.Item),
			Order: len(pulled.Records.Order),
		}
		trace.Deleted = pulled.DeletedIDs
		trace.Cursor = pulled.Cursor
		trace.HasMore = pulled.HasMore
		h.lastCursor = pulled.Cursor
	}

	for _, msg := range h.checkExpect(label, step.Expect, trace) {
		result.AddError(msg)
	}
	for _, r := range results {
		if r.Success && r.EntityID != "" {
			h.entities[r.OperationID] = r.EntityID
		}
	}
	result.Trace = append(result.Trace, trace)

	h.logger.Info("scenario step completed",
		"step", index,
		"name", step.Name,
		"kind", trace.Kind,
		"account", account,
		"error", trace.Error,
	)
	return nil
}

// checkExpect compares a step trace against its expect clause.
func (h *Harness) checkExpect(label string, expect *Expect, trace StepTrace) []string {
	var errs []string
	if expect == nil {
		if trace.Error != "" {
			errs = append(errs, fmt.Sprintf("%s: unexpected request error %s", label, trace.Error))
		}
		return errs
	}

	if expect.Error != trace.Error {
		errs = append(errs, fmt.Sprintf("%s: request error: expected %q, got %q", label, expect.Error, trace.Error))
		return errs
	}

	if expect.Results != nil {
		if len(expect.Results) != len(trace.Results) {
			errs = append(errs, fmt.Sprintf("%s: expected %d results, got %d", label, len(expect.Results), len(trace.Results)))
		} else {
			for i, want := range expect.Results {
				errs = append(errs, h.checkResult(fmt.Sprintf("%s results[%d]", label, i), want, trace.Results[i])...)
			}
		}
	}

	if expect.Records != nil {
		var got RecordCounts
		if trace.Records != nil {
			got = *trace.Records
		}
		for class, n := range expect.Records {
			if got.get(class) != n {
				errs = append(errs, fmt.Sprintf("%s: expected %d %s records, got %d", label, n, class, got.get(class)))
			}
		}
	}
	if expect.Deleted != nil && *expect.Deleted != len(trace.Deleted) {
		errs = append(errs, fmt.Sprintf("%s: expected %d deleted ids, got %d", label, *expect.Deleted, len(trace.Deleted)))
	}
	if expect.HasMore != nil && *expect.HasMore != trace.HasMore {
		errs = append(errs, fmt.Sprintf("%s: expected hasMore=%t, got %t", label, *expect.HasMore, trace.HasMore))
	}
	return errs
}

func (h *Harness) checkResult(label string, want ResultExpect, got ResultTrace) []string {
	var errs []string
	if want.Success != got.Success {
		errs = append(errs, fmt.Sprintf("%s (%s): expected success=%t, got %t (code %q)", label, got.OperationID, want.Success, got.Success, got.Code))
	}
	if want.Code != "" && want.Code != got.Code {
		errs = append(errs, fmt.Sprintf("%s (%s): expected code %q, got %q", label, got.OperationID, want.Code, got.Code))
	}
	if want.Field != "" && want.Field != got.Field {
		errs = append(errs, fmt.Sprintf("%s (%s): expected field %q, got %q", label, got.OperationID, want.Field, got.Field))
	}
	if want.SameAs != "" {
		prior, ok := h.entities[want.SameAs]
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("%s: sameAs %q names no earlier successful operation", label, want.SameAs))
		case prior != got.EntityID:
			errs = append(errs, fmt.Sprintf("%s (%s): expected entity %s (from %s), got %s", label, got.OperationID, prior, want.SameAs, got.EntityID))
		}
	}
	if want.Deleted != nil && *want.Deleted != len(got.Deleted) {
		errs = append(errs, fmt.Sprintf("%s (%s): expected %d deleted, got %d", label, got.OperationID, *want.Deleted, len(got.Deleted)))
	}
	return errs
}

// cursor resolves the $last placeholder.
func (h *Harness) cursor(token string) string {
	if token == LastCursor {
		return h.lastCursor
	}
	return token
}
