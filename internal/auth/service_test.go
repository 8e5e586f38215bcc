package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.Permission{}, &entities.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func TestService_CreateUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4})

	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     entities.UserRole
		wantErr  error
	}{
		{"valid admin", "admin", "admin@example.com", "password123", entities.UserRoleAdmin, nil},
		{"valid librarian", "libby", "libby@example.com", "password123", entities.UserRoleLibrarian, nil},
		{"valid member", "jane.doe", "jane@example.com", "password123", entities.UserRoleMember, nil},
		{"missing username", "", "x@example.com", "password123", entities.UserRoleMember, ErrUsernameRequired},
		{"missing email", "someone", "", "password123", entities.UserRoleMember, ErrEmailRequired},
		{"missing password", "someone", "x@example.com", "", entities.UserRoleMember, ErrPasswordRequired},
		{"short password", "someone", "x@example.com", "short", entities.UserRoleMember, ErrPasswordTooShort},
		{"invalid username", "a b", "x@example.com", "password123", entities.UserRoleMember, ErrUsernameInvalid},
		{"invalid email", "someone", "not-an-email", "password123", entities.UserRoleMember, ErrEmailInvalid},
		{"invalid role", "someone", "x@example.com", "password123", entities.UserRole("owner"), ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.CreateUser(tt.username, tt.email, tt.password, tt.role)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateUser() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if user.ID == 0 {
				t.Error("expected user ID to be assigned")
			}
			if user.PasswordHash == "" || user.PasswordHash == tt.password {
				t.Error("password must be stored hashed")
			}
		})
	}
}

func TestService_CreateUser_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4})

	if _, err := svc.CreateUser("alice", "alice@example.com", "password123", entities.UserRoleMember); err != nil {
		t.Fatalf("first CreateUser() error = %v", err)
	}

	_, err := svc.CreateUser("alice", "other@example.com", "password123", entities.UserRoleMember)
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate username: error = %v, want %v", err, ErrUserExists)
	}

	_, err = svc.CreateUser("alice2", "alice@example.com", "password123", entities.UserRoleMember)
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate email: error = %v, want %v", err, ErrUserExists)
	}
}

func TestService_Authenticate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4, MaxLoginAttempts: 3, LockoutDuration: time.Minute})

	if _, err := svc.CreateUser("alice", "alice@example.com", "password123", entities.UserRoleMember); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	user, err := svc.Authenticate("alice", "password123")
	if err != nil {
		t.Fatalf("Authenticate() by username error = %v", err)
	}
	if user.LastLoginAt == nil {
		t.Error("expected LastLoginAt to be set")
	}

	if _, err := svc.Authenticate("alice@example.com", "password123"); err != nil {
		t.Errorf("Authenticate() by email error = %v", err)
	}

	if _, err := svc.Authenticate("nobody", "password123"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: error = %v, want %v", err, ErrUserNotFound)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate("alice", "wrong-password"); !errors.Is(err, ErrInvalidPassword) {
			t.Fatalf("attempt %d: error = %v, want %v", i, err, ErrInvalidPassword)
		}
	}

	if _, err := svc.Authenticate("alice", "password123"); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("after lockout: error = %v, want %v", err, ErrAccountLocked)
	}
}

func TestService_Authenticate_LoadsPermissions(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4})

	user, err := svc.CreateUser("libby", "libby@example.com", "password123", entities.UserRoleLibrarian)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	perm := entities.Permission{Codename: entities.PermissionCanMarkReturned, Name: "Set book as returned"}
	if err := db.Create(&perm).Error; err != nil {
		t.Fatalf("create permission: %v", err)
	}
	if err := db.Model(user).Association("Permissions").Append(&perm); err != nil {
		t.Fatalf("grant permission: %v", err)
	}

	loaded, err := svc.Authenticate("libby", "password123")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !loaded.HasPermission(entities.PermissionCanMarkReturned) {
		t.Error("expected permissions to be preloaded")
	}

	byID, err := svc.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if !byID.HasPermission(entities.PermissionCanMarkReturned) {
		t.Error("expected GetUserByID to preload permissions")
	}
}

func TestService_TokenOperations(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4, TokenExpiry: time.Hour})

	user, err := svc.CreateUser("alice", "alice@example.com", "password123", entities.UserRoleMember)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	token, err := svc.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	validated, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if validated.ID != user.ID {
		t.Errorf("ValidateToken() user = %d, want %d", validated.ID, user.ID)
	}

	if _, err := svc.ValidateToken(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token: error = %v", err)
	}
	if _, err := svc.GenerateToken(999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: error = %v", err)
	}

	old := time.Now().Add(-2 * time.Hour)
	db.Model(&entities.User{}).Where("id = ?", user.ID).Update("token_created_at", old)
	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expired token: error = %v, want %v", err, ErrTokenExpired)
	}

	if err := svc.RevokeToken(user.ID); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}
	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("revoked token: error = %v, want %v", err, ErrInvalidToken)
	}
}

func TestService_ChangePassword(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4})

	user, err := svc.CreateUser("alice", "alice@example.com", "oldpassword", entities.UserRoleMember)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if err := svc.ChangePassword(user.ID, "wrongpassword", "newpassword"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("wrong old password: error = %v", err)
	}
	if err := svc.ChangePassword(user.ID, "oldpassword", "newpassword"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.Authenticate("alice", "oldpassword"); err == nil {
		t.Error("old password should no longer work")
	}
	if _, err := svc.Authenticate("alice", "newpassword"); err != nil {
		t.Errorf("new password should work: %v", err)
	}
}

func TestService_HasUsers(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, config.Auth{BcryptCost: 4, Mode: config.AuthModeLocal})

	has, err := svc.HasUsers()
	if err != nil || has {
		t.Fatalf("HasUsers() = %v, %v; want false, nil", has, err)
	}

	if _, err := svc.CreateUser("alice", "alice@example.com", "password123", entities.UserRoleMember); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	has, err = svc.HasUsers()
	if err != nil || !has {
		t.Fatalf("HasUsers() = %v, %v; want true, nil", has, err)
	}

	if !svc.IsAuthEnabled() {
		t.Error("local mode should report auth enabled")
	}
	if NewService(db, config.Auth{Mode: config.AuthModeNone}).IsAuthEnabled() {
		t.Error("none mode should report auth disabled")
	}
}
