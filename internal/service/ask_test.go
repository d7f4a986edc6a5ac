package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/llm"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/service"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/sqlite"
)

// lastUserContent pulls the newest user message out of a chat-completions
// request body so the fake model can answer per question.
func lastUserContent(r *http.Request) string {
	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return ""
	}
	for i := len(body.Messages) - 1; i >= 0; i-- {
		if body.Messages[i].Role == "user" {
			return body.Messages[i].Content
		}
	}
	return ""
}

func writeChatContent(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
}

// newTestManager wires a manager against a seeded database file and a fake
// model endpoint.
func newTestManager(t *testing.T, handler http.HandlerFunc) (*service.Manager, *service.Session) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ask.db")
	gw, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE film (film_id INTEGER PRIMARY KEY, title TEXT NOT NULL)`,
		`INSERT INTO film (title) VALUES ('Alpha'), ('Beta'), ('Gamma'), ('Delta'), ('Epsilon')`,
	} {
		result := gw.ExecuteStatement(context.Background(), stmt)
		require.Empty(t, result.Error)
	}
	require.NoError(t, gw.Close())

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	pool, err := llm.NewKeyPool([]string{"k1", "k2"})
	require.NoError(t, err)

	client := llm.NewClient(pool, "test-model", server.URL, "http://localhost", "test")
	manager := service.NewManager(client, llm.Options{
		Temperature: 0.2,
		MaxTokens:   2048,
		Timeout:     5 * time.Second,
	}, 10, 5)

	session, err := manager.Connect(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Disconnect(session.ID) })

	return manager, session
}

func TestAsk_Success(t *testing.T) {
	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatContent(w, "```sql\nSELECT COUNT(*) FROM film;\n```\nThis counts all rows.")
	})

	resp := manager.Ask(context.Background(), session, "how many films are there?")

	require.True(t, resp.Success, "error: %s", resp.ErrorMessage)
	assert.Equal(t, "SELECT COUNT(*) FROM film;", resp.SQLQuery)
	assert.Equal(t, "This counts all rows.", resp.Explanation)
	require.NotNil(t, resp.Result)
	assert.Equal(t, int64(5), resp.Result.Rows[0][0])
	require.NotNil(t, resp.Metadata)
	assert.Equal(t, 1, resp.Metadata.LLMAttempts)
	assert.Equal(t, "test-model", resp.Metadata.Model)
	assert.NotEmpty(t, resp.Metadata.RequestID)

	history := session.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "how many films are there?", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, "SELECT COUNT(*) FROM film;", history[1].SQL)
	require.NotNil(t, history[1].Result)
}

func TestAsk_EducationalNotes(t *testing.T) {
	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatContent(w, "Counting rows.\n```sql\nSELECT COUNT(*) FROM film;\n```\nSQL Concept: COUNT aggregates rows into a single value.")
	})

	resp := manager.Ask(context.Background(), session, "how many films?")

	require.True(t, resp.Success)
	assert.Equal(t, "Counting rows.", resp.Explanation)
	assert.Contains(t, resp.EducationalNotes, "SQL Concept:")
}

func TestAsk_NoSQLRecovered(t *testing.T) {
	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatContent(w, "I can only answer questions about the data in this database.")
	})

	resp := manager.Ask(context.Background(), session, "what is the weather today?")

	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrKindNoSQL, resp.ErrorKind)
	assert.Empty(t, resp.SQLQuery)

	// The exchange still lands in history so the model keeps its context.
	assert.Len(t, session.History(), 2)
}

func TestAsk_RejectedStatement(t *testing.T) {
	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatContent(w, "```sql\nSELECT title FROM film UNION SELECT name FROM sqlite_master;\n```")
	})

	resp := manager.Ask(context.Background(), session, "list everything")

	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrKindRejected, resp.ErrorKind)
	assert.Contains(t, resp.SQLQuery, "UNION SELECT")
	assert.Nil(t, resp.Result)
	assert.Len(t, session.History(), 2)
}

func TestAsk_StatementError(t *testing.T) {
	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatContent(w, "```sql\nSELECT nope FROM film;\n```")
	})

	resp := manager.Ask(context.Background(), session, "select a column that does not exist")

	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrKindStatement, resp.ErrorKind)
	assert.Equal(t, "SELECT nope FROM film;", resp.SQLQuery)
	assert.NotEmpty(t, resp.ErrorMessage)

	history := session.History()
	require.Len(t, history, 2)
	require.NotNil(t, history[1].Result)
	assert.True(t, history[1].Result.Failed())
}

func TestAsk_LLMTransportFailure(t *testing.T) {
	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	resp := manager.Ask(context.Background(), session, "anything")

	assert.False(t, resp.Success)
	assert.Equal(t, domain.ErrKindLLMTransport, resp.ErrorKind)
	assert.Equal(t, 2, resp.Metadata.LLMAttempts) // both keys tried
	assert.Empty(t, session.History())
}

func TestAsk_SupersededByNewerRequest(t *testing.T) {
	slowArrived := make(chan struct{})

	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		question := lastUserContent(r)
		if strings.Contains(question, "SLOW") {
			close(slowArrived)
			select {
			case <-r.Context().Done():
				return
			case <-time.After(5 * time.Second):
			}
			writeChatContent(w, "```sql\nSELECT 1;\n```")
			return
		}
		writeChatContent(w, "```sql\nSELECT COUNT(*) FROM film;\n```")
	})

	first := make(chan *domain.AskResponse, 1)
	go func() {
		first <- manager.Ask(context.Background(), session, "SLOW question")
	}()

	select {
	case <-slowArrived:
	case <-time.After(3 * time.Second):
		t.Fatal("first request never reached the model")
	}

	second := manager.Ask(context.Background(), session, "how many films?")
	require.True(t, second.Success, "error: %s", second.ErrorMessage)

	select {
	case resp := <-first:
		assert.False(t, resp.Success)
		assert.Equal(t, domain.ErrKindSuperseded, resp.ErrorKind)
	case <-time.After(3 * time.Second):
		t.Fatal("superseded request never completed")
	}

	// Only the winning exchange is recorded.
	history := session.History()
	require.Len(t, history, 2)
	assert.Equal(t, "how many films?", history[0].Content)
}

func TestAsk_CancelDiscardsInFlight(t *testing.T) {
	arrived := make(chan struct{})

	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		select {
		case <-r.Context().Done():
			return
		case <-time.After(5 * time.Second):
		}
		writeChatContent(w, "```sql\nSELECT 1;\n```")
	})

	done := make(chan *domain.AskResponse, 1)
	go func() {
		done <- manager.Ask(context.Background(), session, "slow question")
	}()

	select {
	case <-arrived:
	case <-time.After(3 * time.Second):
		t.Fatal("request never reached the model")
	}

	session.Cancel()

	select {
	case resp := <-done:
		assert.False(t, resp.Success)
		assert.Equal(t, domain.ErrKindSuperseded, resp.ErrorKind)
	case <-time.After(3 * time.Second):
		t.Fatal("cancelled request never completed")
	}

	assert.Empty(t, session.History())
}

func TestAsk_HistoryWindowTrimmed(t *testing.T) {
	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatContent(w, "```sql\nSELECT COUNT(*) FROM film;\n```")
	})

	for i := 0; i < 13; i++ {
		resp := manager.Ask(context.Background(), session, fmt.Sprintf("question %d", i))
		require.True(t, resp.Success)
	}

	history := session.History()
	assert.Len(t, history, 20) // 10 pairs
	assert.Equal(t, "question 3", history[0].Content)
	assert.Equal(t, "question 12", history[18].Content)
}

func TestSession_Reset(t *testing.T) {
	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatContent(w, "```sql\nSELECT COUNT(*) FROM film;\n```")
	})

	resp := manager.Ask(context.Background(), session, "how many films?")
	require.True(t, resp.Success)
	require.Len(t, session.History(), 2)

	session.Reset()
	assert.Empty(t, session.History())

	// The session keeps working after a reset.
	resp = manager.Ask(context.Background(), session, "and now?")
	assert.True(t, resp.Success)
	assert.Len(t, session.History(), 2)
}

func TestManager_GetAndDisconnect(t *testing.T) {
	manager, session := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		writeChatContent(w, "```sql\nSELECT 1;\n```")
	})

	got, err := manager.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = manager.Get(uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, manager.Disconnect(session.ID))
	_, err = manager.Get(session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = manager.Disconnect(session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_Connect_InvalidFile(t *testing.T) {
	pool, err := llm.NewKeyPool([]string{"k1"})
	require.NoError(t, err)
	client := llm.NewClient(pool, "test-model", "http://localhost:0", "http://localhost", "test")
	manager := service.NewManager(client, llm.Options{}, 10, 5)

	_, err = manager.Connect(context.Background(), "")
	assert.Error(t, err)
}
