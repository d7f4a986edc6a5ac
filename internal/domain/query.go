package domain

// QueryResult contains the outcome of executing a single statement. Execution
// always produces a result object; engine failures are captured in Error
// rather than raised.
type QueryResult struct {
	Columns          []string `json:"columns"`
	Rows             [][]any  `json:"rows"`
	RowCount         int      `json:"row_count"`
	Error            string   `json:"error,omitempty"`
	ExecutionSeconds float64  `json:"execution_seconds"`
}

// Failed reports whether the underlying engine rejected the statement.
func (r *QueryResult) Failed() bool {
	return r.Error != ""
}

// AskRequest is a natural-language question posed against a session.
type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// AskResponse is the single caller-facing result of one pipeline invocation.
// Exactly one of the two shapes is populated: Success=true with the query
// parts and result rows, or Success=false with an error kind and message.
type AskResponse struct {
	Success          bool         `json:"success"`
	Explanation      string       `json:"explanation,omitempty"`
	SQLQuery         string       `json:"sql_query,omitempty"`
	EducationalNotes string       `json:"educational_notes,omitempty"`
	Result           *QueryResult `json:"result,omitempty"`
	ErrorKind        ErrorKind    `json:"error_kind,omitempty"`
	ErrorMessage     string       `json:"error_message,omitempty"`
	Metadata         *AskMetadata `json:"metadata,omitempty"`
}

// AskMetadata carries per-request diagnostics.
type AskMetadata struct {
	RequestID    string `json:"request_id"`
	Model        string `json:"model"`
	LLMAttempts  int    `json:"llm_attempts"`
	LLMLatencyMs int64  `json:"llm_latency_ms"`
	TotalTimeMs  int64  `json:"total_time_ms"`
}

// ParsedResponse is the structured view of a raw LLM reply.
type ParsedResponse struct {
	Explanation      string `json:"explanation"`
	SQLQuery         string `json:"sql_query"`
	EducationalNotes string `json:"educational_notes"`
}
