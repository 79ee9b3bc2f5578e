package rbac

import (
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Require lets the request through when the role in context holds perm.
// Browsers are sent to loginPath instead of getting a 403, the way the
// quiz pages bounce unauthenticated visitors back to their login form.
func Require(perm, loginPath string) func(http.Handler) http.Handler {
	return RequireWith(defaultChecker, perm, loginPath)
}

func RequireWith(c *Checker, perm, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !c.Has(role, perm) {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
