package routes

import (
	"fmt"
	"net/http"
	"strings"

	"clipstitch/logger"
	"clipstitch/models"
	"clipstitch/utils"
)

// requireAuth enforces a bearer JWT signed with the shared secret on
// mutating endpoints. Auth is disabled when no secret is configured.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Cfg.JWTSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		if _, err := verifyBearer(r, []byte(a.Cfg.JWTSecret)); err != nil {
			logger.Warnf("Rejected request to %s: %v", r.URL.Path, err)
			a.jsonError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func verifyBearer(r *http.Request, secret []byte) (*models.AuthClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header required")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return nil, fmt.Errorf("invalid authorization header format")
	}

	claims, err := utils.VerifyToken(token, utils.VerifyConfig{SecretKey: secret})
	if err != nil {
		return nil, err
	}
	return claims, nil
}
