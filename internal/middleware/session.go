package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"roomchat/internal/session"
)

// BindingReader is what the session middleware needs from the cookie codec.
type BindingReader interface {
	Read(r *http.Request) (session.Binding, error)
}

type SessionMiddleware struct {
	reader BindingReader
}

func NewSessionMiddleware(r BindingReader) *SessionMiddleware {
	return &SessionMiddleware{reader: r}
}

// Handle injects the request's session binding into its context. A missing or
// unreadable cookie is not an error here: the request simply carries no
// binding and each handler decides what that means.
func (sm *SessionMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		binding, err := sm.reader.Read(r)
		if err != nil {
			if !errors.Is(err, session.ErrNoBinding) {
				slog.Debug("ignoring session cookie", "path", r.URL.Path, "err", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := session.WithBinding(r.Context(), binding)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
