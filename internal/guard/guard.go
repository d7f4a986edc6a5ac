// Package guard validates statements against a safety deny-list before they
// reach the database gateway.
package guard

import (
	"context"
	"fmt"
	"regexp"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/sqlite"
)

// denyPatterns are the dangerous shapes rejected outright. Statements are not
// otherwise restricted to read-only; any class that clears the deny-list may
// execute.
var denyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i);\s*DROP\s+TABLE`),
	regexp.MustCompile(`(?i)\bUNION\s+SELECT\b`),
	regexp.MustCompile(`(?i)\bINTO\s+OUTFILE\b`),
	regexp.MustCompile(`(?i)\bINTO\s+DUMPFILE\b`),
}

// Guard validates and runs statements against one gateway.
type Guard struct {
	gw *sqlite.Gateway
}

// New creates a guard over the given gateway.
func New(gw *sqlite.Gateway) *Guard {
	return &Guard{gw: gw}
}

// Validate rejects statements matching the deny-list. A rejected statement
// never reaches the gateway.
func Validate(sql string) error {
	for _, pattern := range denyPatterns {
		if pattern.MatchString(sql) {
			return fmt.Errorf("%w: query contains potentially harmful operations", domain.ErrRejectedStatement)
		}
	}
	return nil
}

// Run validates the statement and, on acceptance, delegates to the gateway,
// returning its result unchanged. The returned error is non-nil only for
// deny-list rejections; engine failures stay inside QueryResult.Error.
func (g *Guard) Run(ctx context.Context, sql string) (*domain.QueryResult, error) {
	if err := Validate(sql); err != nil {
		return nil, err
	}
	return g.gw.ExecuteStatement(ctx, sql), nil
}
