package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	"github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
)

var ErrCatalogNotEmpty = errors.New("catalog already has books, use -force to seed anyway")

// CatalogWriter is the part of the catalog the seeder writes to.
type CatalogWriter interface {
	CountBooks() (int64, error)
	CreateGenre(genre *entities.Genre) error
	CreateLanguage(language *entities.Language) error
	CreateAuthor(author *entities.Author) error
	CreateBook(book *entities.Book, genreIDs []uint) error
	CreateInstance(instance *entities.BookInstance) error
}

// AccountWriter creates accounts and grants permissions.
type AccountWriter interface {
	CreateUser(username, email, password string, role entities.UserRole) (*entities.User, error)
	GrantPermission(userID uint, codename string) error
}

type SeedSummary struct {
	Users, Genres, Languages, Authors, Books, Instances int
}

func (s SeedSummary) String() string {
	return fmt.Sprintf("%d users, %d genres, %d languages, %d authors, %d books, %d copies",
		s.Users, s.Genres, s.Languages, s.Authors, s.Books, s.Instances)
}

// Seed writes fixtures into the catalog. References to unknown genres,
// languages, authors, books or borrowers fail the seed.
func Seed(store CatalogWriter, accounts AccountWriter, f *Fixtures, force bool) (SeedSummary, error) {
	var summary SeedSummary

	if !force {
		count, err := store.CountBooks()
		if err != nil {
			return summary, err
		}
		if count > 0 {
			return summary, ErrCatalogNotEmpty
		}
	}

	userIDs := map[string]uint{}
	for _, u := range f.Users {
		role := u.Role
		if role == "" {
			role = entities.UserRoleMember
		}
		user, err := accounts.CreateUser(u.Username, u.Email, u.Password, role)
		if err != nil {
			return summary, fmt.Errorf("user %s: %w", u.Username, err)
		}
		for _, codename := range u.Permissions {
			if err := accounts.GrantPermission(user.ID, codename); err != nil {
				return summary, fmt.Errorf("user %s: grant %s: %w", u.Username, codename, err)
			}
		}
		userIDs[u.Username] = user.ID
		summary.Users++
	}

	genreIDs := map[string]uint{}
	for _, name := range f.Genres {
		genre := &entities.Genre{Name: name}
		if err := store.CreateGenre(genre); err != nil {
			return summary, fmt.Errorf("genre %s: %w", name, err)
		}
		genreIDs[name] = genre.ID
		summary.Genres++
	}

	languageIDs := map[string]uint{}
	for _, name := range f.Languages {
		language := &entities.Language{Name: name}
		if err := store.CreateLanguage(language); err != nil {
			return summary, fmt.Errorf("language %s: %w", name, err)
		}
		languageIDs[name] = language.ID
		summary.Languages++
	}

	authorIDs := map[string]uint{}
	for _, a := range f.Authors {
		author := &entities.Author{FirstName: a.FirstName, LastName: a.LastName}
		var err error
		if author.DateOfBirth, err = parseDate(a.DateOfBirth); err != nil {
			return summary, fmt.Errorf("author %s: %w", author, err)
		}
		if author.DateOfDeath, err = parseDate(a.DateOfDeath); err != nil {
			return summary, fmt.Errorf("author %s: %w", author, err)
		}
		if err := store.CreateAuthor(author); err != nil {
			return summary, fmt.Errorf("author %s: %w", author, err)
		}
		authorIDs[author.String()] = author.ID
		summary.Authors++
	}

	bookIDs := map[string]uint{}
	for _, b := range f.Books {
		book := &entities.Book{Title: b.Title, Summary: b.Summary, ISBN: b.ISBN}
		if b.Author != "" {
			id, ok := authorIDs[b.Author]
			if !ok {
				return summary, fmt.Errorf("book %s: unknown author %q", b.Title, b.Author)
			}
			book.AuthorID = &id
		}
		if b.Language != "" {
			id, ok := languageIDs[b.Language]
			if !ok {
				return summary, fmt.Errorf("book %s: unknown language %q", b.Title, b.Language)
			}
			book.LanguageID = &id
		}
		var genres []uint
		for _, name := range b.Genres {
			id, ok := genreIDs[name]
			if !ok {
				return summary, fmt.Errorf("book %s: unknown genre %q", b.Title, name)
			}
			genres = append(genres, id)
		}
		if err := store.CreateBook(book, genres); err != nil {
			return summary, fmt.Errorf("book %s: %w", b.Title, err)
		}
		bookIDs[b.Title] = book.ID
		summary.Books++
	}

	for _, inst := range f.Instances {
		bookID, ok := bookIDs[inst.Book]
		if !ok {
			return summary, fmt.Errorf("copy: unknown book %q", inst.Book)
		}
		instance := &entities.BookInstance{BookID: &bookID, Imprint: inst.Imprint, Status: inst.Status}
		if instance.Status == "" {
			instance.Status = entities.LoanStatusMaintenance
		}
		if inst.Borrower != "" {
			id, ok := userIDs[inst.Borrower]
			if !ok {
				return summary, fmt.Errorf("copy of %s: unknown borrower %q", inst.Book, inst.Borrower)
			}
			instance.BorrowerID = &id
		}
		var err error
		if instance.DueBack, err = parseDate(inst.DueBack); err != nil {
			return summary, fmt.Errorf("copy of %s: %w", inst.Book, err)
		}
		if err := store.CreateInstance(instance); err != nil {
			return summary, fmt.Errorf("copy of %s: %w", inst.Book, err)
		}
		summary.Instances++
	}

	return summary, nil
}

// SeedDatabase runs Seed inside a single transaction on db, so a fixture
// that fails part-way leaves the database untouched.
func SeedDatabase(db *gorm.DB, authCfg config.Auth, f *Fixtures, force bool) (SeedSummary, error) {
	var summary SeedSummary
	err := db.Transaction(func(tx *gorm.DB) error {
		accounts := &accountWriter{
			service: auth.NewService(tx, authCfg),
			users:   users.NewRepository(tx),
		}
		var err error
		summary, err = Seed(catalog.NewRepository(tx), accounts, f, force)
		return err
	})
	if err != nil {
		return SeedSummary{}, err
	}
	return summary, nil
}

// SeedCommand loads a sample catalog into the configured database.
type SeedCommand struct {
	FixturesPath string
	Force        bool
}

func NewSeedCommand() *SeedCommand {
	return &SeedCommand{}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	fs.StringVar(&cmd.FixturesPath, "file", "", "YAML fixtures to load (defaults to the bundled sample library)")
	fs.BoolVar(&cmd.Force, "force", false, "Seed even when the catalog already has books")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Load genres, languages, authors, books, copies and accounts into the database\n")
		fmt.Fprintf(os.Stderr, "selected by DATABASE_DRIVER / DATABASE_PATH / DATABASE_DSN.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *SeedCommand) Run(cfg *config.Config) error {
	fixtures, err := LoadFixtures(cmd.FixturesPath)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := SeedDatabase(db.DB, cfg.Auth, fixtures, cmd.Force)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %s\n", summary)
	return nil
}

type accountWriter struct {
	service *auth.Service
	users   *users.Repository
}

func (w *accountWriter) CreateUser(username, email, password string, role entities.UserRole) (*entities.User, error) {
	return w.service.CreateUser(username, email, password, role)
}

func (w *accountWriter) GrantPermission(userID uint, codename string) error {
	return w.users.GrantPermission(userID, codename)
}
