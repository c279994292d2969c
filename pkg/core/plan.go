package core

// HandlerPlanStep is one row of the generated server-side orchestration plan.
// ID is "<sliceKey>:<actionKey>" and is stable across regenerations.
type HandlerPlanStep struct {
	ID        string `json:"id"`
	SliceKey  string `json:"slice_key"`
	ActionKey string `json:"action_key"`

	// Structural fields, always taken from the freshly computed base plan.
	SliceLabel     string `json:"slice_label"`
	ActionLabel    string `json:"action_label"`
	InvocationType string `json:"invocation_type,omitempty"`

	// Editable fields, preserved across reconciliation.
	ResultName        string `json:"result_name"`
	InputExpression   string `json:"input_expression,omitempty"`
	Notes             string `json:"notes,omitempty"`
	AutoExecute       bool   `json:"auto_execute"`
	IncludeInResponse bool   `json:"include_in_response"`
}

// StepID builds the stable identity of a plan step.
func StepID(sliceKey, actionKey string) string {
	return sliceKey + ":" + actionKey
}
