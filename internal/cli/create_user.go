package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// CreateUserCommand adds an account from the command line.
type CreateUserCommand struct {
	Username    string
	Email       string
	Password    string
	Role        string
	Permissions []string
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	var perms string
	fs.StringVar(&cmd.Username, "username", "", "Login name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password, at least 8 characters (required)")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleMember), "Role: admin, librarian or member")
	fs.StringVar(&perms, "permissions", "", "Comma-separated permission codenames to grant")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> -email <email> -password <password> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -username libby -email libby@example.com -password s3cretpass -role librarian -permissions %s\n",
			os.Args[0], entities.PermissionCanMarkReturned)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" || cmd.Email == "" || cmd.Password == "" {
		return fmt.Errorf("flags -username, -email and -password are required")
	}
	if perms != "" {
		cmd.Permissions = strings.Split(perms, ",")
	}
	return nil
}

func (cmd *CreateUserCommand) Run(cfg *config.Config) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := auth.NewService(db.DB, cfg.Auth).CreateUser(cmd.Username, cmd.Email, cmd.Password, entities.UserRole(cmd.Role))
	if err != nil {
		return err
	}

	repo := users.NewRepository(db.DB)
	for _, codename := range cmd.Permissions {
		if err := repo.GrantPermission(user.ID, strings.TrimSpace(codename)); err != nil {
			return fmt.Errorf("grant %s: %w", codename, err)
		}
	}

	fmt.Printf("Created %s user %s (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}
