package middleware

import (
	"context"
	"net/http"
	"strings"

	jwt_internal "github.com/itchan-dev/mediable/shared/jwt"
	"github.com/itchan-dev/mediable/shared/logger"
	"github.com/itchan-dev/mediable/shared/utils"
)

type key int

const PrincipalKey key = 0

type Auth struct {
	jwtService jwt_internal.JwtService
}

func NewAuth(jwtService jwt_internal.JwtService) *Auth {
	return &Auth{jwtService: jwtService}
}

// NeedAuth rejects requests without a valid bearer token and stores the
// decoded principal in the request context.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return a.auth(false)
}

// AdminOnly is NeedAuth that also requires the admin claim.
func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return a.auth(true)
}

func (a *Auth) auth(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || tokenString == "" {
				http.Error(w, "Please sign in", http.StatusUnauthorized)
				return
			}

			principal, err := a.jwtService.DecodeToken(tokenString)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if adminOnly && !principal.Admin {
				logger.Log.Warn("admin route denied", "subject", principal.Subject, "path", r.URL.Path)
				http.Error(w, "Access denied. Only for admin", http.StatusForbidden)
				return
			}
			logger.Log.Debug("authenticated request", "subject", principal.Subject, "path", r.URL.Path)

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipalFromContext returns nil outside authenticated routes.
func GetPrincipalFromContext(r *http.Request) *jwt_internal.Principal {
	p, _ := r.Context().Value(PrincipalKey).(*jwt_internal.Principal)
	return p
}

// Subject names the caller for logs; anonymous requests get "".
func Subject(r *http.Request) string {
	if p := GetPrincipalFromContext(r); p != nil {
		return p.Subject
	}
	return ""
}
