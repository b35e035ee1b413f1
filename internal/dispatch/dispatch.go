// Package dispatch defines the contracts between the conversation engine
// and the upstream tool runtime, plus the MCP client that fulfils them.
package dispatch

import (
	"context"
	"errors"

	"github.com/askarihq/patrolbot/internal/domain"
)

// ErrAuthFailed is returned by Authenticator.Login when the backend
// rejects the supplied credentials. The reason is never user-visible.
var ErrAuthFailed = errors.New("authentication failed")

// Status classifies a dispatch result. The set is closed: anything the
// backend produces that is not a success or a permission failure maps to
// StatusFailure.
type Status int

const (
	StatusOK Status = iota
	StatusForbidden
	StatusFailure
)

// Result is the outcome of invoking one backend tool.
type Result struct {
	Status  Status
	Payload string
	// reason carries the underlying failure for logging only.
	reason error
}

// Success wraps a tool payload.
func Success(payload string) Result {
	return Result{Status: StatusOK, Payload: payload}
}

// Forbidden marks a permission failure.
func Forbidden() Result {
	return Result{Status: StatusForbidden}
}

// Failure wraps an opaque backend error.
func Failure(err error) Result {
	return Result{Status: StatusFailure, reason: err}
}

// Reason returns the underlying failure, if any. Callers may log it but
// must never surface it to the user.
func (r Result) Reason() error {
	return r.reason
}

// Dispatcher invokes a resolved action against the backend.
type Dispatcher interface {
	Invoke(ctx context.Context, token string, action domain.Action) Result
}

// Authenticator exchanges credentials for a backend token and answers
// token freshness probes.
type Authenticator interface {
	// Login returns a token on success or ErrAuthFailed when the backend
	// rejects the credentials. Other errors are transport failures.
	Login(ctx context.Context, username, password string) (string, error)

	// Check reports whether the token is still accepted by the backend.
	Check(ctx context.Context, token string) (bool, error)

	// Logout invalidates the token server-side. Best effort.
	Logout(ctx context.Context, token string) error
}
