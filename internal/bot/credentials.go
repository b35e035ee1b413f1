package bot

import (
	"regexp"

	"github.com/askarihq/patrolbot/internal/domain"
)

// Credential-supply messages carry labeled username and password fields.
// Labels are case-insensitive, fields may arrive in either order, on one
// line or two.
var (
	usernamePattern = regexp.MustCompile(`(?im)\busername\s*[:=]\s*(\S+)`)
	passwordPattern = regexp.MustCompile(`(?im)\bpassword\s*[:=]\s*(\S+)`)
)

// ParseCredentials extracts credentials from a message. Both fields are
// required; a message matching only one is not a credential supply.
func ParseCredentials(text string) (domain.Credentials, bool) {
	user := usernamePattern.FindStringSubmatch(text)
	pass := passwordPattern.FindStringSubmatch(text)
	if user == nil || pass == nil {
		return domain.Credentials{}, false
	}
	return domain.Credentials{Username: user[1], Password: pass[1]}, true
}
