package auth

import (
	"net/http"
	"strings"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/authctx"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

// RequireUser rejects requests without a valid bearer access token and puts
// the token subject into the request context.
func RequireUser(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
				utilities.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			userID, err := tokens.ParseAccessToken(strings.TrimSpace(header[len("bearer "):]))
			if err != nil {
				utilities.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(authctx.WithUserID(r.Context(), userID)))
		})
	}
}
