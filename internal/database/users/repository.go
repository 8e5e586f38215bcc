// Package users provides database operations for library users and their permissions.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	err := repo.GrantPermission(userID, entities.PermissionCanMarkReturned)
package users

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/entities"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrPermissionNotFound = errors.New("permission not found")
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID with permissions loaded.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.Preload("Permissions").First(&user, id).Error
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username with permissions loaded.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Preload("Permissions").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &user, nil
}

// ListUsers returns all users ordered by username.
func (r *Repository) ListUsers() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Preload("Permissions").Order("username ASC").Find(&users).Error
	return users, err
}

// SetRole changes a user's role.
func (r *Repository) SetRole(userID uint, role entities.UserRole) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", userID).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EnsurePermission returns the permission with codename, creating it if needed.
func (r *Repository) EnsurePermission(codename, name string) (*entities.Permission, error) {
	perm := entities.Permission{Codename: codename, Name: name}
	err := r.db.Where(entities.Permission{Codename: codename}).
		Attrs(entities.Permission{Name: name}).
		FirstOrCreate(&perm).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure permission %s: %w", codename, err)
	}
	return &perm, nil
}

// GrantPermission attaches the permission to the user. Granting twice is a no-op.
func (r *Repository) GrantPermission(userID uint, codename string) error {
	user, perm, err := r.userAndPermission(userID, codename)
	if err != nil {
		return err
	}
	return r.db.Model(user).Association("Permissions").Append(perm)
}

// RevokePermission detaches the permission from the user.
func (r *Repository) RevokePermission(userID uint, codename string) error {
	user, perm, err := r.userAndPermission(userID, codename)
	if err != nil {
		return err
	}
	return r.db.Model(user).Association("Permissions").Delete(perm)
}

// ListPermissions returns every known permission.
func (r *Repository) ListPermissions() ([]entities.Permission, error) {
	var perms []entities.Permission
	err := r.db.Order("codename ASC").Find(&perms).Error
	return perms, err
}

func (r *Repository) userAndPermission(userID uint, codename string) (*entities.User, *entities.Permission, error) {
	var user entities.User
	if err := r.db.First(&user, userID).Error; err != nil {
		return nil, nil, notFound(err, ErrUserNotFound)
	}
	var perm entities.Permission
	if err := r.db.Where("codename = ?", codename).First(&perm).Error; err != nil {
		return nil, nil, notFound(err, ErrPermissionNotFound)
	}
	return &user, &perm, nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
