package middleware

import (
	"net/http"

	"github.com/itchan-dev/mediable/shared/logger"
	"github.com/itchan-dev/mediable/shared/middleware/ratelimiter"
	"github.com/itchan-dev/mediable/shared/utils"
)

// RateLimitByIP limits requests per client address.
func RateLimitByIP(rl *ratelimiter.KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, err := utils.GetIP(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !rl.Allow(ip) {
				logger.Log.Info("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
