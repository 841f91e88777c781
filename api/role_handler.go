package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/database"
)

type roleHandler struct {
	responder Responder
	roleRepo  *database.RoleRepo
}

func newRoleHandler(roleRepo *database.RoleRepo) roleHandler {
	logger := log.With().Str("handlerName", "roleHandler").Logger()

	return roleHandler{
		responder: NewResponder(logger),
		roleRepo:  roleRepo,
	}
}

// getRoles lists every role with its permission set
// @Summary List roles
// @Tags Roles
// @Produce json
// @Success 200 {object} envelope "Roles"
// @Failure 403 {object} envelope "Missing roles:read"
// @Router /api/roles [get]
func (h roleHandler) getRoles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roles, err := h.roleRepo.FindAll(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "roles", err))
			return
		}

		h.responder.WriteData(w, http.StatusOK, roles, "Roles fetched successfully")
	}
}
