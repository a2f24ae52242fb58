package report

import "encoding/json"

// Result is the outcome of one report run. Failures carry only Success and Message.
type Result struct {
	Success       bool             `json:"success"`
	Data          []map[string]any `json:"data"`
	Columns       []string         `json:"columns"`
	RowCount      int              `json:"row_count"`
	ExecutionTime float64          `json:"execution_time"` // seconds
	Message       string           `json:"message"`
	RunID         string           `json:"run_id,omitempty"`
	SQL           string           `json:"-"`
}

func failure(runID string, err error) *Result {
	return &Result{Success: false, Message: err.Error(), RunID: runID}
}

// MarshalJSON emits the reduced {success, message} shape for failures.
func (r *Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
			RunID   string `json:"run_id,omitempty"`
		}{r.Success, r.Message, r.RunID})
	}
	type plain Result
	return json.Marshal((*plain)(r))
}
