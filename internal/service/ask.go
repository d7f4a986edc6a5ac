package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/llm"
)

// Ask runs the full pipeline for one question: prompt assembly, LLM call with
// key rotation, SQL extraction, guard validation and execution. It always
// returns exactly one response object, success or failure, and never leaves
// the conversation history half-updated: turns are appended only once the
// outcome is definitive and the request has not been superseded.
func (m *Manager) Ask(ctx context.Context, s *Session, question string) *domain.AskResponse {
	started := time.Now()
	meta := &domain.AskMetadata{
		RequestID: uuid.New().String(),
		Model:     m.client.Model(),
	}

	messages := llm.BuildMessages(s.promptText, s.History(), question, m.maxHistory)

	reqCtx, seq := s.beginRequest(ctx)
	defer s.endRequest(seq)

	llmStart := time.Now()
	content, attempts, err := m.client.GenerateResponse(reqCtx, messages, m.genOpts)
	meta.LLMAttempts = attempts
	meta.LLMLatencyMs = time.Since(llmStart).Milliseconds()

	if !s.isCurrent(seq) {
		log.Debug().Str("request_id", meta.RequestID).Msg("discarding superseded response")
		return failure(domain.ErrKindSuperseded, "request superseded by a newer one", meta, started)
	}

	if err != nil {
		log.Error().Err(err).Str("request_id", meta.RequestID).Msg("llm call failed")
		return failure(domain.ErrKindLLMTransport, err.Error(), meta, started)
	}

	explanation, _, notes := llm.ParseStructured(content)
	sqlText := llm.ExtractSQL(content)

	userTurn := domain.ConversationTurn{
		Role:      domain.RoleUser,
		Content:   question,
		CreatedAt: started,
	}
	assistantTurn := domain.ConversationTurn{
		Role:             domain.RoleAssistant,
		Content:          content,
		SQL:              sqlText,
		Explanation:      explanation,
		EducationalNotes: notes,
		CreatedAt:        time.Now(),
	}

	if sqlText == "" {
		s.appendTurns(seq, userTurn, assistantTurn)
		resp := failure(domain.ErrKindNoSQL,
			"the model replied but no SQL statement could be recovered; try rephrasing the question",
			meta, started)
		resp.Explanation = explanation
		return resp
	}

	result, err := s.guard.Run(ctx, sqlText)
	if errors.Is(err, domain.ErrRejectedStatement) {
		s.appendTurns(seq, userTurn, assistantTurn)
		resp := failure(domain.ErrKindRejected, err.Error(), meta, started)
		resp.SQLQuery = sqlText
		return resp
	}

	assistantTurn.Result = result

	if result.Failed() {
		s.appendTurns(seq, userTurn, assistantTurn)
		resp := failure(domain.ErrKindStatement, result.Error, meta, started)
		resp.SQLQuery = sqlText
		resp.Explanation = explanation
		return resp
	}

	if !s.appendTurns(seq, userTurn, assistantTurn) {
		return failure(domain.ErrKindSuperseded, "request superseded by a newer one", meta, started)
	}

	meta.TotalTimeMs = time.Since(started).Milliseconds()
	return &domain.AskResponse{
		Success:          true,
		Explanation:      explanation,
		SQLQuery:         sqlText,
		EducationalNotes: notes,
		Result:           result,
		Metadata:         meta,
	}
}

func failure(kind domain.ErrorKind, message string, meta *domain.AskMetadata, started time.Time) *domain.AskResponse {
	meta.TotalTimeMs = time.Since(started).Milliseconds()
	return &domain.AskResponse{
		Success:      false,
		ErrorKind:    kind,
		ErrorMessage: message,
		Metadata:     meta,
	}
}
