package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/ankravcenko/medikeep/internal/common"
)

type contextKey string

const userIDKey contextKey = "userID"

// userID returns the authenticated account id placed by the auth
// middleware, or empty for unauthenticated requests.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authMiddleware validates the bearer access token and stores the account
// id in the request context. Requests without a valid token get 401 with
// the "unauthorized" code, which triggers the client's refresh flow.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			writeError(w, common.ErrorUnauthorized)
			return
		}
		token := strings.TrimPrefix(header, common.BearerPrefix)
		id, err := s.users.UserIDFromToken(token)
		if err != nil {
			writeError(w, common.ErrorUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
