package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
)

type roleLookup interface {
	HasPermission(ctx context.Context, roleName, permission string) (bool, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// permissionGuard checks a permission string against the caller's role
// before a handler runs. Anonymous callers are checked against the public
// role.
type permissionGuard struct {
	responder Responder
	roles     roleLookup
	users     userLookup
}

func newPermissionGuard(roles roleLookup, users userLookup) permissionGuard {
	logger := log.With().Str("handlerName", "permissionGuard").Logger()
	return permissionGuard{
		responder: NewResponder(logger),
		roles:     roles,
		users:     users,
	}
}

// allowed resolves the caller's current role and reports whether it grants
// permission. The role is read from the user row rather than the token so
// role changes apply immediately.
func (g permissionGuard) allowed(r *http.Request, permission string) error {
	ctx := r.Context()
	session := ctxGetSession(ctx)

	roleName := models.RolePublic
	if session != nil {
		user, err := g.users.FindByID(ctx, session.UserID)
		if errs.IsNotFound(err) {
			return errs.NewInvalidTokenError()
		}
		if err != nil {
			return wrapDatabaseError("find", "user", err)
		}
		roleName = user.RoleName
	}

	ok, err := g.roles.HasPermission(ctx, roleName, permission)
	if err != nil {
		return wrapDatabaseError("find", "role", err)
	}
	if ok {
		return nil
	}
	if session == nil {
		return errs.NewMissingTokenError()
	}
	return errs.NewInsufficientPermissionError(permission)
}

// require wraps next so it only runs when the caller holds permission.
// Otherwise the response is 401 or 403 and next is never invoked.
func (g permissionGuard) require(permission string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := g.allowed(r, permission); err != nil {
			g.responder.WriteError(w, err)
			return
		}
		next(w, r)
	}
}

// requireSession rejects anonymous callers before next runs.
func (g permissionGuard) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxGetSession(r.Context()) == nil {
			g.responder.WriteError(w, errs.NewMissingTokenError())
			return
		}
		next(w, r)
	}
}
