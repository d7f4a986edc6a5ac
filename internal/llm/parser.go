package llm

import (
	"regexp"
	"strings"
)

// The extraction below is deliberately heuristic text processing, not SQL
// parsing. It mirrors what the execution side enforces (single statement, no
// comments) so a cleaned statement passes through unchanged.

var (
	lineCommentRe  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	sqlKeywordRe   = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|PRAGMA)\b`)
	pragmaStmtRe   = regexp.MustCompile(`(?i)PRAGMA\s+[^;]+;`)

	taggedFenceRe  = regexp.MustCompile("(?s)```sql\\s+(.*?)\\s+```")
	genericFenceRe = regexp.MustCompile("(?s)```\\s+(.*?)\\s+```")
)

// lineStartKeywords begin the plain-text scan when no fenced block matched.
var lineStartKeywords = []string{
	"SELECT", "FROM", "WHERE", "GROUP BY", "ORDER BY",
	"INSERT INTO", "UPDATE", "DELETE FROM", "PRAGMA",
}

// ExtractSQL recovers a single executable statement from unstructured model
// output. Priority, first match wins: a fenced block tagged sql, then any
// fenced block containing a SQL keyword, then a best-effort scan of plain
// lines. An empty result means "no SQL found", which is a distinguishable
// outcome rather than an error.
func ExtractSQL(response string) string {
	if strings.Contains(response, "```sql") {
		if m := taggedFenceRe.FindStringSubmatch(response); m != nil {
			return CleanSQL(strings.TrimSpace(m[1]))
		}
		// Tag present but no closing fence; take everything after the tag.
		after := response[strings.Index(response, "```sql")+len("```sql"):]
		if stmt := strings.TrimSpace(after); stmt != "" {
			return CleanSQL(stmt)
		}
	}

	if strings.Contains(response, "```") {
		parts := strings.Split(response, "```")
		for i := 1; i < len(parts); i += 2 {
			candidate := strings.TrimSpace(parts[i])
			if candidate != "" && sqlKeywordRe.MatchString(candidate) {
				return CleanSQL(candidate)
			}
		}
	}

	if stmt := scanPlainLines(response); stmt != "" {
		return CleanSQL(stmt)
	}

	return ""
}

// scanPlainLines collects a contiguous run of lines starting at the first
// line that begins with a known SQL keyword and ending at the next blank line.
func scanPlainLines(response string) string {
	var collected []string
	inSQL := false

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		switch {
		case !inSQL && startsWithKeyword(upper):
			inSQL = true
			collected = append(collected, line)
		case inSQL && trimmed != "":
			collected = append(collected, line)
		case inSQL:
			return strings.TrimSpace(strings.Join(collected, "\n"))
		}
	}

	return strings.TrimSpace(strings.Join(collected, "\n"))
}

func startsWithKeyword(upperLine string) bool {
	for _, kw := range lineStartKeywords {
		if strings.HasPrefix(upperLine, kw) {
			return true
		}
	}
	return false
}

// CleanSQL sanitizes an extracted statement to match the gateway's
// single-statement policy: comments stripped, only the first PRAGMA kept when
// several are present, otherwise only the text up to and including the first
// semicolon. Idempotent.
func CleanSQL(query string) string {
	query = lineCommentRe.ReplaceAllString(query, "")
	query = blockCommentRe.ReplaceAllString(query, "")
	query = strings.TrimSpace(query)

	if strings.Count(strings.ToUpper(query), "PRAGMA") > 1 {
		if first := pragmaStmtRe.FindString(query); first != "" {
			return strings.TrimSpace(first)
		}
	}

	if idx := strings.Index(query, ";"); idx >= 0 {
		if head := strings.TrimSpace(query[:idx]); head != "" {
			return head + ";"
		}
	}

	return query
}

// educationalMarkers is the fixed ordered list of note prefixes; the first
// one found wins.
var educationalMarkers = []string{
	"SQL Concept:",
	"Educational Note:",
	"Note:",
	"SQL Tip:",
}

// ParseStructured splits a raw reply into explanation (text before the first
// fence), the fenced SQL query, and educational notes (marker-tagged text, or
// the text after the second fence as a fallback).
func ParseStructured(response string) (explanation, sqlQuery, notes string) {
	if m := taggedFenceRe.FindStringSubmatch(response); m != nil {
		sqlQuery = strings.TrimSpace(m[1])
	} else if m := genericFenceRe.FindStringSubmatch(response); m != nil {
		sqlQuery = strings.TrimSpace(m[1])
	}

	if strings.Contains(response, "```") {
		explanation = strings.TrimSpace(strings.SplitN(response, "```", 2)[0])
	}

	markerFound := false
	for _, marker := range educationalMarkers {
		if idx := strings.Index(response, marker); idx >= 0 {
			notes = marker + " " + strings.TrimSpace(response[idx+len(marker):])
			markerFound = true
			break
		}
	}

	// No tagged note section: text after the closing fence is the explanation
	// when none preceded the fence, otherwise it becomes the notes.
	if !markerFound {
		parts := strings.Split(response, "```")
		if len(parts) > 2 {
			if trailing := strings.TrimSpace(parts[2]); trailing != "" {
				if explanation == "" {
					explanation = trailing
				} else {
					notes = trailing
				}
			}
		}
	}

	return explanation, sqlQuery, notes
}
