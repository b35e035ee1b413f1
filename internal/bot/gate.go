// Package bot implements the conversation engine: the authentication
// gate, the credential login flow with action replay, and the fixed
// response templates.
package bot

import (
	"strings"

	"github.com/askarihq/patrolbot/internal/domain"
)

// Backend tool names the gate has an opinion about. Everything else is
// opaque to the engine.
const (
	ToolSearchSites    = "search_sites"
	ToolSearchGuards   = "search_guards"
	ToolAssistantQuery = "assistant_query"
)

// exemptTools lists the operations that never require authentication:
// read-only searches whose queries carry their own scoping. The set is a
// policy constant.
var exemptTools = map[string]bool{
	ToolSearchSites:  true,
	ToolSearchGuards: true,
}

// RequiresAuth reports whether the tool needs an authenticated session.
func RequiresAuth(tool string) bool {
	return !exemptTools[tool]
}

// Outcome classifies what the gate decides for one requested action.
type Outcome int

const (
	// OutcomeProceed forwards the action to the dispatcher.
	OutcomeProceed Outcome = iota
	// OutcomeNeedsLogin defers the action and prompts for credentials.
	OutcomeNeedsLogin
	// OutcomeReplay resubmits a deferred action after a successful
	// login. It is only produced by the login flow, never from a fresh
	// inbound message.
	OutcomeReplay
	// OutcomeExpired reports that a session which authenticated before no
	// longer holds live authentication.
	OutcomeExpired
)

// Classify decides the gate outcome for a fresh inbound action. A stale
// token on a still-authenticated session is detected separately, by the
// per-turn freshness probe.
func Classify(sess domain.Session, action domain.Action) Outcome {
	if !RequiresAuth(action.Tool) || sess.Authenticated {
		return OutcomeProceed
	}
	if sess.WasAuthenticated {
		return OutcomeExpired
	}
	return OutcomeNeedsLogin
}

// Router resolves a user message to a backend action. Which tool a
// message maps to is outside the engine's concern.
type Router interface {
	Route(text string) domain.Action
}

// KeywordRouter is the default resolver: the two self-scoped search tools
// are recognized by their leading verbs, everything else is handed to the
// assistant query tool. Natural-language understanding happens upstream.
type KeywordRouter struct{}

// Route implements Router.
func (KeywordRouter) Route(text string) domain.Action {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(lower, "find site"),
		strings.HasPrefix(lower, "search site"):
		return domain.Action{Tool: ToolSearchSites, Input: text}
	case strings.HasPrefix(lower, "find guard"),
		strings.HasPrefix(lower, "search guard"):
		return domain.Action{Tool: ToolSearchGuards, Input: text}
	}
	return domain.Action{Tool: ToolAssistantQuery, Input: text}
}
