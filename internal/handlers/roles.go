package handlers

import (
	"net/http"

	"github.com/adminpanel/apiserver/internal/services"
	"github.com/adminpanel/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// RoleHandler provides HTTP handlers for roles.
type RoleHandler struct {
	roleService *services.RoleService
}

func NewRoleHandler(roleService *services.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// RoleRouter registers role routes on the given router.
func RoleRouter(r chi.Router, roleService *services.RoleService) {
	handler := NewRoleHandler(roleService)

	r.Get("/", handler.ListRoles)
	r.Post("/", handler.CreateRole)
	r.Post("/toggle", handler.ToggleFlag)
	r.Route("/{roleID}", func(r chi.Router) {
		r.Put("/", handler.UpdateRole)
		r.Delete("/", handler.DeleteRole)
	})
}

// RoleRequest is the body of role create and update calls. Flags accept
// booleans or 0/1; absent flags take the defaults of the operation. An
// absent emoji is left as stored.
type RoleRequest struct {
	Name        string      `json:"name" validate:"required"`
	OldName     string      `json:"oldName"`
	PanelAdmin  *types.Flag `json:"panelAdmin"`
	PanelUser   *types.Flag `json:"panelUser"`
	PanelLogs   *types.Flag `json:"panelLogs"`
	CanDelete   *types.Flag `json:"canDelete"`
	CanCreate   *types.Flag `json:"canCreate"`
	CanEdit     *types.Flag `json:"canEdit"`
	CanViewLogs *types.Flag `json:"canViewLogs"`
	Emoji       *string     `json:"emoji"`
}

func (req RoleRequest) apply(role types.Role) types.Role {
	role.Name = req.Name
	if req.Emoji != nil {
		role.Emoji = *req.Emoji
	}
	set := func(dst *types.Flag, src *types.Flag) {
		if src != nil {
			*dst = *src
		}
	}
	set(&role.PanelFlags.Admin, req.PanelAdmin)
	set(&role.PanelFlags.User, req.PanelUser)
	set(&role.PanelFlags.Logs, req.PanelLogs)
	set(&role.PermissionFlags.Delete, req.CanDelete)
	set(&role.PermissionFlags.Create, req.CanCreate)
	set(&role.PermissionFlags.Edit, req.CanEdit)
	set(&role.PermissionFlags.ViewLogs, req.CanViewLogs)
	return role
}

type ToggleFlagRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required,oneof=panels permissions"`
	Flag     string `json:"flag" validate:"required"`
}

func (h *RoleHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *RoleHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := h.roleService.Create(r.Context(), req.apply(types.NewRole(req.Name)))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IDResponse{ID: role.ID})
}

// UpdateRole rewrites every flag (absent means off) and renames users
// holding oldName.
func (h *RoleHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "roleID", "role")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.roleService.Update(r.Context(), id, req.apply(types.Role{}), req.OldName, req.Emoji)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RoleHandler) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	var req ToggleFlagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	changes, err := h.roleService.ToggleFlag(r.Context(), req.Name, req.Category, req.Flag)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangesResponse{Changes: changes})
}

func (h *RoleHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "roleID", "role")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	changes, err := h.roleService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangesResponse{Changes: changes})
}
