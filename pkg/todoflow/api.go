package todoflow

import (
	"time"

	"todoflow/auth"
	"todoflow/metrics"
	"todoflow/todo"
)

// IssueToken signs a bearer token for owner
func (t *Todoflow) IssueToken(owner string) (string, time.Time, error) {
	return t.tokens.Issue(owner)
}

// Tokens returns the token service used to authenticate requests
func (t *Todoflow) Tokens() *auth.TokenService {
	return t.tokens
}

// Session returns the live session of owner, starting it on first use
func (t *Todoflow) Session(owner string) (*todo.Session, error) {
	return t.manager.Session(owner)
}

// Gateway returns the mutation gateway shared by all sessions
func (t *Todoflow) Gateway() *todo.Gateway {
	return t.gateway
}

func (t *Todoflow) Metrics() *metrics.Metrics {
	return t.metrics
}
