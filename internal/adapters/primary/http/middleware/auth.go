package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/remote"
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserKey is the key used to store the signed-in user in the request context.
const UserKey contextKey = "user"

// Session is the view of the session the middleware needs.
type Session interface {
	Token() string
	User() *domain.User
}

// Authorizer decides whether a user may open a dashboard section.
type Authorizer interface {
	Authorize(user *domain.User, view domain.View) error
}

// SessionAuth admits requests whose bearer token is the current session
// token. Anything else gets a 401 that tells the browser to go to the login page.
func SessionAuth(session Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeUnauthenticated(w, "Authorization header format must be Bearer {token}")
				return
			}
			user, ok := Authenticate(session, token)
			if !ok {
				writeUnauthenticated(w, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			ctx = logging.WithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireView rejects users whose role does not include view.
func RequireView(authz Authorizer, view domain.View) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := GetUser(r.Context())
			if err := authz.Authorize(user, view); err != nil {
				if user == nil {
					writeUnauthenticated(w, "Authentication required")
					return
				}
				writeError(w, http.StatusForbidden, err.Error(), "FORBIDDEN")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// Authenticate returns the session user when token is the live session token.
func Authenticate(session Session, token string) (*domain.User, bool) {
	current := session.Token()
	if current == "" || token == "" {
		return nil, false
	}
	if subtle.ConstantTimeCompare([]byte(current), []byte(token)) != 1 {
		return nil, false
	}
	user := session.User()
	if user == nil {
		return nil, false
	}
	return user, true
}

// GetUser retrieves the signed-in user from the request context.
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok && user != nil
}

type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeBody(w, status, errorBody{Error: message, Code: code})
}

func writeUnauthenticated(w http.ResponseWriter, message string) {
	writeBody(w, http.StatusUnauthorized, errorBody{
		Error:    message,
		Code:     "UNAUTHENTICATED",
		Redirect: remote.LoginPath,
	})
}

func writeBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
