package middleware

import (
	"net/http"

	"lesson-enrollment/pkg/utils"
)

// Identity reads the authenticated user propagated by the front proxy.
// Requests without X-User-Id are rejected before reaching handlers.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		if userID == "" {
			utils.ResponseUnauthorized(w, "Missing user identity")
			return
		}

		ctx := utils.SetUserID(r.Context(), userID)
		if role := r.Header.Get("X-User-Role"); role != "" {
			ctx = utils.SetUserRole(ctx, role)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly restricts a route subtree to users carrying the admin role.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.IsAdmin(r.Context()) {
			utils.ResponseForbidden(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
