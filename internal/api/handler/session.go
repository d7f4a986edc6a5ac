package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/api/response"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/service"
)

var validate = validator.New()

// maxCellChars truncates long text cells before rendering.
const maxCellChars = 100

// SessionHandler exposes the session lifecycle and the ask pipeline.
type SessionHandler struct {
	manager       *service.Manager
	maxResultRows int
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(manager *service.Manager, maxResultRows int) *SessionHandler {
	return &SessionHandler{manager: manager, maxResultRows: maxResultRows}
}

// CreateSessionRequest connects a session to an uploaded database file.
type CreateSessionRequest struct {
	FilePath string `json:"file_path" validate:"required"`
}

// Create opens a connection to the database file and returns the new session
// with its schema summary.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	session, err := h.manager.Connect(r.Context(), req.FilePath)
	if err != nil {
		response.Error(w, http.StatusUnprocessableEntity, map[string]any{
			"error_kind":    domain.ErrKindConnection,
			"error_message": err.Error(),
		})
		return
	}

	response.Created(w, map[string]any{
		"session_id":     session.ID,
		"created_at":     session.CreatedAt,
		"schema_summary": session.SchemaSummary(),
	})
}

// GetSchema returns the schema snapshot and its human-readable summary.
func (h *SessionHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	response.OK(w, map[string]any{
		"schema":  session.Schema(),
		"summary": session.SchemaSummary(),
	})
}

// Ask runs one question through the pipeline and renders the result, with
// result rows capped at the configured maximum and long cells truncated.
func (h *SessionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	resp := h.manager.Ask(r.Context(), session, req.Question)
	if resp.Result != nil {
		resp.Result = truncateResult(resp.Result, h.maxResultRows)
	}

	response.OK(w, resp)
}

// History returns the session's conversation history.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	response.OK(w, map[string]any{
		"history": session.History(),
	})
}

// Cancel invalidates any in-flight request for the session. Safe to call at
// any time.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.Cancel()
	response.OK(w, map[string]string{"status": "cancelled"})
}

// Reset cancels any in-flight request and clears the conversation history.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.Reset()
	response.OK(w, map[string]string{"status": "reset"})
}

// Delete disconnects the session and closes its database connection.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	if err := h.manager.Disconnect(id); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.NoContent(w)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return nil, false
	}

	session, err := h.manager.Get(id)
	if err != nil {
		response.NotFound(w, "session not found")
		return nil, false
	}

	return session, true
}

// truncateResult caps the number of rows and the length of text cells for
// display. The caller owns this policy; the pipeline returns full results.
func truncateResult(result *domain.QueryResult, maxRows int) *domain.QueryResult {
	out := *result

	rows := result.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	truncated := make([][]any, len(rows))
	for i, row := range rows {
		line := make([]any, len(row))
		for j, v := range row {
			if s, ok := v.(string); ok && len(s) > maxCellChars {
				line[j] = s[:maxCellChars] + "..."
			} else {
				line[j] = v
			}
		}
		truncated[i] = line
	}

	out.Rows = truncated
	out.RowCount = len(truncated)
	return &out
}
