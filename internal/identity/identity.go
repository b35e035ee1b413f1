// Package identity provides anonymous per-browser conversation identity
// for the web chat channel.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

const (
	// AnonCookieName carries the conversation identifier across web
	// chat requests.
	AnonCookieName   = "askari_anon_id"
	anonCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const conversationIDKey contextKey = iota

var anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// ConversationIDFromContext extracts the conversation identifier from the
// request context. Empty when the middleware did not run.
func ConversationIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(conversationIDKey).(string); ok {
		return v
	}
	return ""
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

// Middleware assigns (or re-reads) the anonymous conversation cookie and
// places the identifier on the request context.
func Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(AnonCookieName); err == nil && anonIDPattern.MatchString(c.Value) {
				id = c.Value
			}

			if id == "" {
				generated, err := generateAnonID()
				if err != nil {
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				id = generated
				http.SetCookie(w, &http.Cookie{
					Name:     AnonCookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(anonCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), conversationIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
