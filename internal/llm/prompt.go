package llm

import (
	"fmt"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
)

// systemTemplate is the fixed instructional text embedded in every system
// message. The reply format it mandates (fenced sql block, explanation,
// optional educational note) is a contract on the model, not something the
// builder enforces.
const systemTemplate = `You are a specialized SQL assistant that helps users interact with a SQLite database. Your task is to convert natural language questions into correct SQL queries.

DATABASE SCHEMA:
%s

INSTRUCTIONS:
1. Always respond with a valid SQLite SQL query that answers the user's question
2. Always place your SQL query inside triple backticks with the sql language tag like this: ` + "```sql" + `
3. Always add a brief explanation of what the query does and any important SQL concepts used
4. Be precise and use only tables and columns that exist in the schema
5. Format SQL using proper indentation and line breaks for readability
6. You MUST include the SQL query in your response

EXAMPLE RESPONSE FORMAT:
` + "```sql" + `
SELECT column_name FROM table_name WHERE condition;
` + "```" + `

This query [explanation of what the query does]. It uses [mention any important SQL concepts].
`

// BuildMessages assembles the ordered message sequence for one request:
// exactly one system message first (instructions plus schema), then the most
// recent maxHistory user/assistant pairs with the oldest dropped first, then
// the new user turn last.
func BuildMessages(schemaPrompt string, history []domain.ConversationTurn, question string, maxHistory int) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: string(domain.RoleSystem), Content: fmt.Sprintf(systemTemplate, schemaPrompt)},
	}

	if maxHistory > 0 && len(history) > maxHistory*2 {
		history = history[len(history)-maxHistory*2:]
	}
	for _, turn := range history {
		messages = append(messages, domain.ChatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	messages = append(messages, domain.ChatMessage{
		Role:    string(domain.RoleUser),
		Content: question,
	})

	return messages
}
