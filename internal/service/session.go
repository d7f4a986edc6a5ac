package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/guard"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/llm"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/schema"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/sqlite"
)

// Session owns one database connection, the schema snapshot taken at connect
// time, a bounded conversation history, and the handle for the at-most-one
// in-flight LLM request. Sessions are never shared between connections.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	gateway    *sqlite.Gateway
	guard      *guard.Guard
	schema     *domain.SchemaDescriptor
	summary    string
	promptText string

	mu             sync.Mutex
	history        []domain.ConversationTurn
	maxHistory     int
	seq            uint64
	cancelInFlight context.CancelFunc
}

// Schema returns the immutable schema snapshot.
func (s *Session) Schema() *domain.SchemaDescriptor {
	return s.schema
}

// SchemaSummary returns the human-readable schema rendering.
func (s *Session) SchemaSummary() string {
	return s.summary
}

// History returns a copy of the conversation history.
func (s *Session) History() []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

// beginRequest supersedes any in-flight request for this session: the
// previous request's context is cancelled, the sequence number advances, and
// a fresh cancellable context is handed back. The sequence number is compared
// again at completion time so a stale result can never touch session state.
func (s *Session) beginRequest(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelInFlight != nil {
		s.cancelInFlight()
	}

	s.seq++
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancelInFlight = cancel
	return reqCtx, s.seq
}

// endRequest clears the in-flight handle if it still belongs to seq.
func (s *Session) endRequest(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == seq && s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}
}

// isCurrent reports whether seq is still the latest request.
func (s *Session) isCurrent(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == seq
}

// appendTurns records the completed user/assistant pair, but only if seq is
// still current; a superseded request must not overwrite session state. The
// stored history is trimmed to the window used for prompting, oldest first.
func (s *Session) appendTurns(seq uint64, turns ...domain.ConversationTurn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != seq {
		return false
	}

	s.history = append(s.history, turns...)
	if limit := s.maxHistory * 2; limit > 0 && len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
	return true
}

// Cancel invalidates any in-flight request. Always safe to call, with or
// without a request in flight; a late completion is simply discarded.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}
}

// Reset cancels any in-flight request and clears the conversation history.
func (s *Session) Reset() {
	s.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Manager creates and tracks sessions and drives the ask pipeline. One
// manager (and one LLM client with its key pool) serves all sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	client        *llm.Client
	genOpts       llm.Options
	maxHistory    int
	maxSampleRows int
}

// NewManager creates a session manager over the shared LLM client.
func NewManager(client *llm.Client, genOpts llm.Options, maxHistory, maxSampleRows int) *Manager {
	return &Manager{
		sessions:      make(map[uuid.UUID]*Session),
		client:        client,
		genOpts:       genOpts,
		maxHistory:    maxHistory,
		maxSampleRows: maxSampleRows,
	}
}

// Connect opens the database file, extracts the schema snapshot and registers
// a new session around the connection.
func (m *Manager) Connect(ctx context.Context, path string) (*Session, error) {
	gw, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	desc, err := schema.Extract(ctx, gw, m.maxSampleRows)
	if err != nil {
		gw.Close()
		return nil, fmt.Errorf("failed to extract schema: %w", err)
	}

	s := &Session{
		ID:         uuid.New(),
		CreatedAt:  time.Now(),
		gateway:    gw,
		guard:      guard.New(gw),
		schema:     desc,
		summary:    schema.SummaryText(desc),
		promptText: schema.PromptText(desc),
		maxHistory: m.maxHistory,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Info().Str("session_id", s.ID.String()).Int("tables", len(desc.Tables)).Msg("session connected")
	return s, nil
}

// Get resolves a session by ID.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Disconnect cancels any in-flight request, closes the session's connection
// and removes it from the registry.
func (m *Manager) Disconnect(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}

	s.Cancel()
	if err := s.gateway.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	log.Info().Str("session_id", id.String()).Msg("session disconnected")
	return nil
}
