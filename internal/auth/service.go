package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters: letters, digits, dot, underscore or hyphen")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// Service handles authentication and user accounts.
type Service struct {
	db     *gorm.DB
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateUser creates a new user with password authentication.
func (s *Service) CreateUser(username, email, password string, role entities.UserRole) (*entities.User, error) {
	if err := validateAccount(username, email, password, role); err != nil {
		return nil, err
	}

	var existing entities.User
	err := s.db.Where("username = ? OR email = ?", username, email).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func validateAccount(username, email, password string, role entities.UserRole) error {
	switch {
	case username == "":
		return ErrUsernameRequired
	case email == "":
		return ErrEmailRequired
	case password == "":
		return ErrPasswordRequired
	case !usernamePattern.MatchString(username):
		return ErrUsernameInvalid
	case len(email) > 254 || !emailPattern.MatchString(email):
		return ErrEmailInvalid
	}

	switch role {
	case entities.UserRoleAdmin, entities.UserRoleLibrarian, entities.UserRoleMember:
		return nil
	default:
		return ErrInvalidRole
	}
}

// Authenticate validates credentials and returns the user with permissions loaded.
// Accounts lock after MaxLoginAttempts consecutive failures.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	var user entities.User
	err := s.db.Preload("Permissions").Where("username = ? OR email = ?", username, username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(&user)
		return nil, err
	}

	now := time.Now()
	s.db.Model(&user).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	user.LastLoginAt = &now

	return &user, nil
}

func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLoginCount >= maxAttempts {
		lockout := s.config.LockoutDuration
		if lockout == 0 {
			lockout = 30 * time.Minute
		}
		updates["locked_until"] = time.Now().Add(lockout)
	}

	s.db.Model(user).Updates(updates)
}

// GetUserByID retrieves a user and their permissions.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := s.db.Preload("Permissions").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ValidateToken checks a plaintext API token and returns the associated user.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var user entities.User
	err := s.db.Preload("Permissions").Where("token_hash = ?", HashToken(token)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil {
		if time.Since(*user.TokenCreatedAt) > s.config.TokenExpiry {
			return nil, ErrTokenExpired
		}
	}

	return &user, nil
}

// GenerateToken creates a new API token for a user.
// Only the hash is stored, the plaintext is returned once.
func (s *Service) GenerateToken(userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       hash,
		"token_created_at": time.Now(),
	})
	if result.Error != nil {
		return "", fmt.Errorf("failed to save token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrUserNotFound
	}

	return plaintext, nil
}

// RevokeToken removes a user's API token.
func (s *Service) RevokeToken(userID uint) error {
	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke token: %w", result.Error)
	}
	return nil
}

// ChangePassword updates a user's password after verifying the old one.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}

	return s.db.Model(user).Update("password_hash", newHash).Error
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	var count int64
	if err := s.db.Model(&entities.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsAuthEnabled returns true if authentication is required.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}
