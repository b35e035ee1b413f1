package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/askarihq/patrolbot/internal/dispatch"
	"github.com/askarihq/patrolbot/internal/domain"
	"github.com/askarihq/patrolbot/internal/session"
	"github.com/askarihq/patrolbot/internal/store"
)

const defaultDispatchTimeout = 30 * time.Second

// Engine drives one conversation turn: gate, login flow, dispatch, and
// the fixed reply templates. It returns channel-neutral markdown; the
// transports run it through the channel formatter.
type Engine struct {
	sessions   *session.Store
	dispatcher dispatch.Dispatcher
	auth       dispatch.Authenticator
	router     Router
	repo       store.Repository
	timeout    time.Duration
	logger     *slog.Logger
}

// EngineConfig wires an Engine. Repo is optional (history recording is
// skipped without it); Router defaults to KeywordRouter.
type EngineConfig struct {
	Sessions      *session.Store
	Dispatcher    dispatch.Dispatcher
	Authenticator dispatch.Authenticator
	Router        Router
	Repo          store.Repository
	Timeout       time.Duration
	Logger        *slog.Logger
}

// NewEngine creates a conversation engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Router == nil {
		cfg.Router = KeywordRouter{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDispatchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		sessions:   cfg.Sessions,
		dispatcher: cfg.Dispatcher,
		auth:       cfg.Authenticator,
		router:     cfg.Router,
		repo:       cfg.Repo,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// HandleMessage processes one inbound message for a conversation and
// returns the reply text. It never returns an error to the caller; every
// failure maps to one of the fixed templates.
func (e *Engine) HandleMessage(ctx context.Context, id, text string) string {
	text = strings.TrimSpace(text)
	e.sessions.Touch(id)
	e.record(ctx, id, domain.RoleUser, text)

	var reply string
	switch {
	case text == "":
		reply = msgGenericError
	case isLogoutCommand(text):
		reply = e.logout(ctx, id)
	default:
		if creds, ok := ParseCredentials(text); ok {
			reply = e.login(ctx, id, creds)
		} else {
			reply = e.handleAction(ctx, id, e.router.Route(text))
		}
	}

	e.record(ctx, id, domain.RoleAssistant, reply)
	return reply
}

// handleAction runs the gate for a fresh inbound action. Any previously
// deferred action is dropped first: a new unrelated request supersedes
// it.
func (e *Engine) handleAction(ctx context.Context, id string, action domain.Action) string {
	e.sessions.TakePending(id)

	sess := e.sessions.Get(id)
	switch Classify(sess, action) {
	case OutcomeNeedsLogin:
		e.sessions.SetPending(id, action)
		return msgAuthRequired
	case OutcomeExpired:
		e.sessions.SetPending(id, action)
		return msgSessionExpired
	}

	if sess.Authenticated && RequiresAuth(action.Tool) {
		fresh, err := e.checkFresh(ctx, sess.Token)
		if err != nil {
			// Probe failure is a transient error; session state is
			// left untouched.
			e.logger.Warn("auth freshness check failed", "conversation_id", id, "error", err)
			return msgGenericError
		}
		if !fresh {
			e.expire(id)
			return msgSessionExpired
		}
	}

	return e.dispatchAction(ctx, id, sess.Token, action)
}

// login runs the external authenticate call and, on success, commits the
// authenticated state and replays the deferred action in the same
// per-identifier critical section.
func (e *Engine) login(ctx context.Context, id string, creds domain.Credentials) string {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	token, err := e.auth.Login(cctx, creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, dispatch.ErrAuthFailed) {
			// Pending action stays buffered for the retry.
			e.logger.Info("login rejected", "conversation_id", id)
			return msgLoginFailed
		}
		e.logger.Warn("login call failed", "conversation_id", id, "error", err)
		return msgGenericError
	}

	var pending *domain.Action
	e.sessions.Do(id, func(sess *domain.Session) {
		sess.Authenticated = true
		sess.WasAuthenticated = true
		sess.Token = token
		if sess.PendingAction != nil {
			p := *sess.PendingAction
			pending = &p
			sess.PendingAction = nil
		}
	})

	e.logger.Info("login successful", "conversation_id", id)

	reply := msgLoginSuccess
	if pending != nil {
		// Replay: the freshly issued token skips the freshness probe.
		reply += "\n\n" + e.dispatchAction(ctx, id, token, *pending)
	}
	return reply
}

func (e *Engine) logout(ctx context.Context, id string) string {
	sess := e.sessions.Get(id)
	if sess.Authenticated {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		if err := e.auth.Logout(cctx, sess.Token); err != nil {
			e.logger.Warn("logout call failed", "conversation_id", id, "error", err)
		}
	}
	e.sessions.Do(id, func(sess *domain.Session) {
		sess.Authenticated = false
		sess.Token = ""
		sess.PendingAction = nil
	})
	return msgLoggedOut
}

func (e *Engine) dispatchAction(ctx context.Context, id, token string, action domain.Action) string {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result := e.dispatcher.Invoke(cctx, token, action)
	switch result.Status {
	case dispatch.StatusOK:
		if result.Payload == "" {
			return msgGenericError
		}
		return result.Payload
	case dispatch.StatusForbidden:
		// Terminal for this turn; the session stays authenticated.
		e.logger.Info("dispatch forbidden", "conversation_id", id, "tool", action.Tool)
		return msgPermissionDenied
	default:
		e.logger.Warn("dispatch failed", "conversation_id", id, "tool", action.Tool, "error", result.Reason())
		return msgGenericError
	}
}

func (e *Engine) checkFresh(ctx context.Context, token string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.auth.Check(cctx, token)
}

// expire clears authentication and any stale pending action after a
// failed freshness check.
func (e *Engine) expire(id string) {
	e.sessions.Do(id, func(sess *domain.Session) {
		sess.Authenticated = false
		sess.Token = ""
		sess.PendingAction = nil
	})
	e.logger.Info("session expired", "conversation_id", id)
}

func (e *Engine) record(ctx context.Context, id, role, content string) {
	if e.repo == nil || content == "" {
		return
	}
	if err := e.repo.SaveMessage(ctx, id, role, content); err != nil {
		e.logger.Warn("failed to record message", "conversation_id", id, "error", err)
	}
}

func isLogoutCommand(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "logout")
}
