package domain

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultReference is stored when a session is finished without an external reference.
const DefaultReference = "SEM CARD JIRA"

// LoggedSession is a finalized, persisted tracking session.
type LoggedSession struct {
	Token       string
	FinalizedAt string // FinalizedLayout
	Reference   string // External reference, e.g. a Jira card
	Intervals   []Interval
}

// NewToken mints a random v4 UUID rendered as 32 hex characters.
func NewToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Search returns the sessions whose finalization time, token or reference
// contains query. Matching is case-sensitive. A blank query matches nothing.
func Search(query string, sessions []LoggedSession) []LoggedSession {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	var out []LoggedSession
	for _, s := range sessions {
		if strings.Contains(s.FinalizedAt, query) ||
			strings.Contains(s.Token, query) ||
			strings.Contains(s.Reference, query) {
			out = append(out, s)
		}
	}
	return out
}
