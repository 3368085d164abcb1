package auth

import (
	"net/http"

	"github.com/approveflow/expense-service/internal/transport"
)

// RBAC provides role-gating middleware. Admin implies manager; nothing
// implies admin.
type RBAC struct {
	base *transport.BaseHandler
}

func NewRBAC(base *transport.BaseHandler) *RBAC {
	return &RBAC{base: base}
}

func (rb *RBAC) RequireAdmin() func(http.Handler) http.Handler {
	return rb.require(func(a *Actor) bool { return a.IsAdmin() }, "admin role required")
}

func (rb *RBAC) RequireManager() func(http.Handler) http.Handler {
	return rb.require(func(a *Actor) bool { return a.IsManager() }, "manager role required")
}

func (rb *RBAC) require(allowed func(*Actor) bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok || actor == nil {
				rb.base.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !allowed(actor) {
				rb.base.WriteError(w, http.StatusForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
