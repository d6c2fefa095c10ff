package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// publicPaths need no session: download links carry their own credential.
var publicPaths = []string{
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/v1/download",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.sessions == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tok, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.sessions.ParseAndValidate(tok)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				respondError(w, http.StatusUnauthorized, "invalid token")
			} else {
				respondError(w, http.StatusInternalServerError, "authentication error")
			}
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := auth.ContextWithUser(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	tok := strings.TrimSpace(header[len(bearer):])
	if tok == "" {
		return "", errors.New("missing bearer token")
	}
	return tok, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
