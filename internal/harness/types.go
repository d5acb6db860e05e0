package harness

// Step kinds recorded in the trace.
const (
	KindPush = "push"
	KindPull = "pull"
	KindFull = "full"
)

// StepTrace is the deterministic summary of one step's response. Server
// timestamps are left out so that traces compare byte for byte.
type StepTrace struct {
	Name    string        `json:"name"`
	Kind    string        `json:"kind"`
	Account string        `json:"account,omitempty"`
	Results []ResultTrace `json:"results,omitempty"`
	Records *RecordCounts `json:"records,omitempty"`
	Deleted []string      `json:"deleted,omitempty"`
	Cursor  string        `json:"cursor,omitempty"`
	HasMore bool          `json:"hasMore,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ResultTrace summarizes one operation result.
type ResultTrace struct {
	OperationID string   `json:"operationId"`
	Success     bool     `json:"success"`
	EntityID    string   `json:"entityId,omitempty"`
	Deleted     []string `json:"deleted,omitempty"`
	Code        string   `json:"code,omitempty"`
	Field       string   `json:"field,omitempty"`
}

// RecordCounts counts pulled records per class.
type RecordCounts struct {
	Group int `json:"group"`
	Item  int `json:"item"`
	Order int `json:"order"`
}

func (c RecordCounts) get(class string) int {
	switch class {
	case "group":
		return c.Group
	case "item":
		return c.Item
	case "order":
		return c.Order
	}
	return 0
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace has one entry per executed step.
	Trace []StepTrace `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
