package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// Scenario is a scripted conversation between one or more offline clients
// and the sync engine. Steps run in order against a fresh database.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Account is the default account every step runs as.
	Account string `yaml:"account"`

	// Steps are the sync calls, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final database state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one push, pull or full sync call. Exactly one of Push, Pull and
// Full must be set.
type Step struct {
	// Name labels the step in traces and failure messages.
	Name string `yaml:"name"`

	// Account overrides Scenario.Account for this step.
	Account string `yaml:"account,omitempty"`

	// Push is the operation batch of a push call.
	Push []map[string]any `yaml:"push,omitempty"`

	// Pull is a pull call.
	Pull *PullStep `yaml:"pull,omitempty"`

	// Full is a push followed by a pull in one call.
	Full *FullStep `yaml:"full,omitempty"`

	// Expect validates the step's response. Nil means the call must not
	// fail at request level, nothing else is checked.
	Expect *Expect `yaml:"expect,omitempty"`
}

// PullStep describes a pull call.
type PullStep struct {
	// Cursor is the token to pull from. The literal "$last" is replaced by
	// the cursor returned from the previous pull or full step. Empty pulls
	// from the beginning.
	Cursor string `yaml:"cursor,omitempty"`

	// Classes restricts the pulled entity classes.
	Classes []string `yaml:"classes,omitempty"`

	// Limit caps the page size.
	Limit int `yaml:"limit,omitempty"`
}

// FullStep describes a full sync call.
type FullStep struct {
	Operations []map[string]any `yaml:"operations"`
	Cursor     string           `yaml:"cursor,omitempty"`
	Classes    []string         `yaml:"classes,omitempty"`
	Limit      int              `yaml:"limit,omitempty"`
}

// Expect is the expected response of a step. Only the fields that are set
// are checked.
type Expect struct {
	// Error is the expected request-level error code. When set, the call
	// must fail with it.
	Error string `yaml:"error,omitempty"`

	// Results are the expected per-operation outcomes, in request order.
	Results []ResultExpect `yaml:"results,omitempty"`

	// Records maps an entity class to the number of records pulled.
	Records map[string]int `yaml:"records,omitempty"`

	// Deleted is the number of deleted ids pulled.
	Deleted *int `yaml:"deleted,omitempty"`

	// HasMore is the expected pagination flag.
	HasMore *bool `yaml:"hasMore,omitempty"`
}

// ResultExpect is the expected outcome of one operation.
type ResultExpect struct {
	Success bool `yaml:"success"`

	// Code is the expected error code of a failed operation.
	Code string `yaml:"code,omitempty"`

	// Field is the expected offending field of a failed operation.
	Field string `yaml:"field,omitempty"`

	// SameAs names an earlier operationId. The result must carry the same
	// entity id, which is how replays are checked.
	SameAs string `yaml:"sameAs,omitempty"`

	// Deleted is the number of ids a replace_set removed.
	Deleted *int `yaml:"deleted,omitempty"`
}

// Assertion validates final database state.
type Assertion struct {
	// Type selects the check:
	//   - live_count: Class has Count live records
	//   - audit_count: Action appears Count times in the audit log
	//   - item_quantity: the item created with LocalID holds Quantity
	//   - order_status: the order created with LocalID has Status
	Type string `yaml:"type"`

	// Account overrides Scenario.Account.
	Account string `yaml:"account,omitempty"`

	Class    string `yaml:"class,omitempty"`
	Action   string `yaml:"action,omitempty"`
	LocalID  string `yaml:"localId,omitempty"`
	Count    *int   `yaml:"count,omitempty"`
	Quantity *int   `yaml:"quantity,omitempty"`
	Status   string `yaml:"status,omitempty"`
}

// Assertion type constants.
const (
	AssertLiveCount    = "live_count"
	AssertAuditCount   = "audit_count"
	AssertItemQuantity = "item_quantity"
	AssertOrderStatus  = "order_status"
)

// LastCursor is the placeholder for the cursor returned by the previous
// pull or full step.
const LastCursor = "$last"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, s.Account, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, s.Account, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, account string, step *Step) error {
	set := 0
	if step.Push != nil {
		set++
	}
	if step.Pull != nil {
		set++
	}
	if step.Full != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of push, pull, full is required", index)
	}
	if account == "" && step.Account == "" {
		return fmt.Errorf("steps[%d]: account is required", index)
	}
	if step.Expect != nil {
		for class := range step.Expect.Records {
			if _, err := model.ParseEntityClass(class); err != nil {
				return fmt.Errorf("steps[%d].expect.records: %w", index, err)
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, account string, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if account == "" && a.Account == "" {
		return fmt.Errorf("assertions[%d]: account is required", index)
	}

	switch a.Type {
	case AssertLiveCount:
		if _, err := model.ParseEntityClass(a.Class); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for live_count", index)
		}
	case AssertAuditCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for audit_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for audit_count", index)
		}
	case AssertItemQuantity:
		if a.LocalID == "" || a.Quantity == nil {
			return fmt.Errorf("assertions[%d]: localId and quantity are required for item_quantity", index)
		}
	case AssertOrderStatus:
		if a.LocalID == "" {
			return fmt.Errorf("assertions[%d]: localId is required for order_status", index)
		}
		if !model.OrderStatus(a.Status).Valid() {
			return fmt.Errorf("assertions[%d]: unknown order status %q", index, a.Status)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// operations converts YAML operation maps into wire operations. The maps
// go through JSON so that they decode exactly as an HTTP body would.
func operations(raw []map[string]any) ([]model.SyncOperation, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode operations: %w", err)
	}
	var ops []model.SyncOperation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("decode operations: %w", err)
	}
	return ops, nil
}

func classes(raw []string) []model.EntityClass {
	if len(raw) == 0 {
		return nil
	}
	out := make([]model.EntityClass, len(raw))
	for i, c := range raw {
		out[i] = model.EntityClass(c)
	}
	return out
}
