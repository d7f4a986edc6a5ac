package domain

import "errors"

// ErrorKind classifies pipeline failures for the caller-facing contract.
type ErrorKind string

const (
	// ErrKindConnection - database file unreadable or not a valid database.
	ErrKindConnection ErrorKind = "connection_error"
	// ErrKindStatement - execution-time engine error; session stays usable.
	ErrKindStatement ErrorKind = "statement_error"
	// ErrKindLLMTransport - every credential attempt failed.
	ErrKindLLMTransport ErrorKind = "llm_transport_error"
	// ErrKindLLMMalformed - response missing the expected shape.
	ErrKindLLMMalformed ErrorKind = "llm_malformed_response"
	// ErrKindNoSQL - the model replied but no statement could be recovered.
	ErrKindNoSQL ErrorKind = "no_sql_extracted"
	// ErrKindRejected - statement matched the safety deny-list.
	ErrKindRejected ErrorKind = "rejected_statement"
	// ErrKindSuperseded - a newer request replaced this one before it finished.
	ErrKindSuperseded ErrorKind = "request_superseded"
)

// ErrRejectedStatement marks statements blocked by the execution guard.
var ErrRejectedStatement = errors.New("statement rejected")

// ErrSessionNotFound is returned when a session ID does not resolve.
var ErrSessionNotFound = errors.New("session not found")
