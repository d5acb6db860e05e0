// Package schema validates operation payloads against CUE definitions.
//
// Each entity class has a create definition (required fields concrete) and
// a fields definition used for partial updates. Payloads are compiled from
// their JSON encoding so integers and floats keep their JSON kinds.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

//go:embed payload.cue
var payloadCUE string

// FieldError is a single payload validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator checks payloads against the embedded definitions.
//
// A cue.Context is not safe for concurrent use, so Validate serialises
// callers.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(payloadCUE, cue.Filename("payload.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: v}, nil
}

// MustNew is New for package initialisation and tests.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// definition returns the schema definition that governs an operation, or ""
// when the operation carries no payload to validate.
func definition(class model.EntityClass, kind model.OperationKind) string {
	if kind == model.KindReplaceSet {
		return "#ReplaceSet"
	}
	var name string
	switch class {
	case model.ClassGroup:
		name = "#Group"
	case model.ClassItem:
		name = "#Item"
	case model.ClassOrder:
		name = "#Order"
	default:
		return ""
	}
	switch kind {
	case model.KindCreate:
		return name + "Create"
	case model.KindUpdate:
		return name + "Fields"
	}
	return ""
}

// Validate returns every violation found in payload. It does not stop at the
// first error. A nil result means the payload is acceptable.
func (v *Validator) Validate(class model.EntityClass, kind model.OperationKind, payload map[string]any) []FieldError {
	def := definition(class, kind)
	if def == "" {
		return nil
	}
	if payload == nil {
		payload = map[string]any{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return []FieldError{{Field: "payload", Message: err.Error()}}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	val := v.ctx.CompileBytes(data)
	if err := val.Err(); err != nil {
		return []FieldError{{Field: "payload", Message: "payload is not a JSON object"}}
	}
	unified := v.schema.LookupPath(cue.ParsePath(def)).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toFieldErrors(err)
	}
	return nil
}

// toFieldErrors flattens a CUE error list. Duplicate messages for the same
// field (one per disjunct) are collapsed.
func toFieldErrors(err error) []FieldError {
	var out []FieldError
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		path := e.Path()
		if len(path) > 0 && strings.HasPrefix(path[0], "#") {
			path = path[1:]
		}
		field := strings.Join(path, ".")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, FieldError{Field: field, Message: msg})
	}
	if len(out) == 0 {
		out = append(out, FieldError{Field: "payload", Message: err.Error()})
	}
	return out
}
