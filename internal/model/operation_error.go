package model

// OperationError records a journal line that could not be applied.
type OperationError struct {
	Seq   uint64 `json:"seq"`
	Kind  string `json:"op"`
	Pool  string `json:"pool"`
	Line  int    `json:"line,omitempty"`
	Error string `json:"error"`
}
