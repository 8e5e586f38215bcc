package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// UserStore manages accounts and their permissions. *users.Repository satisfies it.
type UserStore interface {
	UserLookup
	ListUsers() ([]entities.User, error)
	SetRole(userID uint, role entities.UserRole) error
	GrantPermission(userID uint, codename string) error
	RevokePermission(userID uint, codename string) error
	ListPermissions() ([]entities.Permission, error)
}

type roleRequest struct {
	Role entities.UserRole `json:"role" binding:"required,oneof=admin librarian member"`
}

// UsersController lets administrators manage roles and permissions.
type UsersController struct {
	store UserStore
	audit AuditLogger
}

func NewUsersController(store UserStore, auditLog AuditLogger) *UsersController {
	return &UsersController{store: store, audit: auditLog}
}

func respondUserStoreError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		respondNotFound(c, "user")
	case errors.Is(err, users.ErrPermissionNotFound):
		respondNotFound(c, "permission")
	default:
		respondInternalError(c, err, context)
	}
}

func (uc *UsersController) logChange(c *gin.Context, userID uint, description string, err error) {
	if uc.audit == nil {
		return
	}
	uc.audit.LogChange(auth.ActorFromRequest(c), entities.AuditEventUpdate, "user", idString(userID), description, err)
}

// ListUsers returns every account with its permissions.
// GET /admin/users
func (uc *UsersController) ListUsers(c *gin.Context) {
	accounts, err := uc.store.ListUsers()
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": accounts, "count": len(accounts)})
}

// ListPermissions returns every grantable permission.
// GET /admin/permissions
func (uc *UsersController) ListPermissions(c *gin.Context) {
	perms, err := uc.store.ListPermissions()
	if err != nil {
		respondInternalError(c, err, "list permissions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

// SetRole changes a user's role.
// PUT /admin/users/:id/role
func (uc *UsersController) SetRole(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if userID == auth.GetUserID(c) && req.Role != entities.UserRoleAdmin {
		respondBadRequest(c, "cannot demote yourself")
		return
	}

	err := uc.store.SetRole(userID, req.Role)
	uc.logChange(c, userID, "role "+string(req.Role), err)
	if err != nil {
		respondUserStoreError(c, err, "set role")
		return
	}
	uc.respondUser(c, userID)
}

// GrantPermission attaches a permission to a user.
// POST /admin/users/:id/permissions/:codename
func (uc *UsersController) GrantPermission(c *gin.Context) {
	uc.changePermission(c, true)
}

// RevokePermission detaches a permission from a user.
// DELETE /admin/users/:id/permissions/:codename
func (uc *UsersController) RevokePermission(c *gin.Context) {
	uc.changePermission(c, false)
}

func (uc *UsersController) changePermission(c *gin.Context, grant bool) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	codename := c.Param("codename")

	var err error
	description := "grant " + codename
	if grant {
		err = uc.store.GrantPermission(userID, codename)
	} else {
		description = "revoke " + codename
		err = uc.store.RevokePermission(userID, codename)
	}
	uc.logChange(c, userID, description, err)
	if err != nil {
		respondUserStoreError(c, err, description)
		return
	}
	uc.respondUser(c, userID)
}

func (uc *UsersController) respondUser(c *gin.Context, userID uint) {
	user, err := uc.store.GetUserByID(userID)
	if err != nil {
		respondUserStoreError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, user)
}
