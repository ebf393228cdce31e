package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkravets/projectdesk/internal/handlers/render"
	"github.com/mkravets/projectdesk/internal/handlers/userctx"
)

// AuthMiddleware validates the identity provider's bearer token and puts its
// subject into the request context as the user id.
// The token protocol itself belongs to the provider, only the HMAC signature
// and the standard claims are checked here
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := subjectFromRequest(r, secret)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func subjectFromRequest(r *http.Request, secret string) (string, error) {
	header := r.Header.Get("Authorization")
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return "", fmt.Errorf("no bearer token in request")
	}

	token, err := jwt.Parse(
		tokenString,
		func(t *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("token parse failed: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return subject, nil
}
