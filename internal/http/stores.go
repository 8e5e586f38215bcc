package http

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// Each controller depends on the narrow interface it uses.
// *catalog.Repository satisfies all of the catalog interfaces below.

// StatsStore provides the counts shown on the home page.
type StatsStore interface {
	CountBooks() (int64, error)
	CountInstances() (int64, error)
	CountInstancesByStatus(status entities.LoanStatus) (int64, error)
	CountAuthors() (int64, error)
	CountGenres() (int64, error)
	CountActiveGenres() (int64, error)
}

// BookStore provides read access to books.
type BookStore interface {
	ListBooks(limit, offset int) ([]entities.Book, int64, error)
	GetBook(id uint) (*entities.Book, error)
}

// AuthorStore provides read access to authors.
type AuthorStore interface {
	ListAuthors(limit, offset int) ([]entities.Author, int64, error)
	GetAuthor(id uint) (*entities.Author, error)
}

// LoanStore lists copies that are on loan.
type LoanStore interface {
	ListLoanedByBorrower(borrowerID uint, limit, offset int) ([]entities.BookInstance, int64, error)
	ListLoaned(limit, offset int) ([]entities.BookInstance, int64, error)
}

// AdminStore is the full read/write surface used by the admin API.
type AdminStore interface {
	BookStore
	AuthorStore

	ListGenres() ([]entities.Genre, error)
	GetGenre(id uint) (*entities.Genre, error)
	CreateGenre(genre *entities.Genre) error
	UpdateGenre(genre *entities.Genre) error
	DeleteGenre(id uint) error

	ListLanguages() ([]entities.Language, error)
	GetLanguage(id uint) (*entities.Language, error)
	CreateLanguage(language *entities.Language) error
	UpdateLanguage(language *entities.Language) error
	DeleteLanguage(id uint) error

	CreateAuthor(author *entities.Author) error
	UpdateAuthor(author *entities.Author) error
	DeleteAuthor(id uint) error

	CreateBook(book *entities.Book, genreIDs []uint) error
	UpdateBook(book *entities.Book, genreIDs []uint) error
	DeleteBook(id uint) error

	ListInstances(filter catalog.InstanceFilter, limit, offset int) ([]entities.BookInstance, int64, error)
	GetInstance(id uuid.UUID) (*entities.BookInstance, error)
	CreateInstance(instance *entities.BookInstance) error
	UpdateInstance(instance *entities.BookInstance) error
	SetLoan(id uuid.UUID, status entities.LoanStatus, borrowerID *uint, dueBack *time.Time) error
	DeleteInstance(id uuid.UUID) error
}

// SessionStore is the per-request session used for the visit counter.
// *scs.SessionManager satisfies it.
type SessionStore interface {
	GetInt(ctx context.Context, key string) int
	Put(ctx context.Context, key string, val any)
}

// AuditLogger records admin mutations. *audit.Service satisfies it.
type AuditLogger interface {
	LogChange(actor audit.Actor, eventType entities.AuditEventType, entityType, entityID, entityName string, err error)
	LogLoan(actor audit.Actor, action, instanceID, description string, err error)
}

// UserLookup resolves borrowers. *users.Repository satisfies it.
type UserLookup interface {
	GetUserByID(id uint) (*entities.User, error)
}
