package middleware

import (
	"net"
	"net/http"
	"strconv"

	portalguard "github.com/eduportal/portalguard"
)

// IdentityHeader carries the authenticated user id to the upstream on
// role-gated paths.
const IdentityHeader = "x-user-id"

// SessionGuard returns middleware that authorizes every request through
// the engine. Denied requests never reach next; they are redirected to the
// engine's unauthorized path. The inbound identity header is always
// stripped so clients cannot inject one.
func SessionGuard(engine *portalguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(IdentityHeader)

			token := ""
			if cookie, err := r.Cookie(engine.SessionCookieName()); err == nil {
				token = cookie.Value
			}

			ctx := portalguard.WithClientIP(r.Context(), remoteIP(r))
			decision := engine.Authorize(ctx, portalguard.AccessRequest{
				Path:  r.URL.Path,
				Token: token,
			})

			if !decision.Allowed {
				http.Redirect(w, r, engine.UnauthorizedPath(), http.StatusTemporaryRedirect)
				return
			}

			if decision.ForwardIdentity {
				r.Header.Set(IdentityHeader, strconv.FormatInt(decision.UserID, 10))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
