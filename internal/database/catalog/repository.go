// Package catalog provides database operations for the library catalog:
// genres, languages, authors, books and book instances.
//
// References between records follow null-on-delete semantics. Deleting an
// author or language clears the reference on its books, and deleting a book
// clears the reference on its instances. The referencing columns are nulled
// explicitly inside the delete transaction, so the behaviour does not depend on
// the store enforcing foreign keys.
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	books, total, err := repo.ListBooks(5, 0)
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/locallibrary/internal/entities"
)

var (
	ErrNotFound         = fmt.Errorf("catalog: %w", gorm.ErrRecordNotFound)
	ErrInvalidReference = errors.New("referenced record does not exist")
)

const loanOrder = "due_back ASC, id ASC"

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Counts ---

func (r *Repository) CountBooks() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountInstances() (int64, error) {
	var count int64
	err := r.db.Model(&entities.BookInstance{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountInstancesByStatus(status entities.LoanStatus) (int64, error) {
	var count int64
	err := r.db.Model(&entities.BookInstance{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *Repository) CountAuthors() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Author{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountGenres() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Genre{}).Count(&count).Error
	return count, err
}

// CountActiveGenres counts genres referenced by at least one book, in a single
// aggregate over the book/genre join table.
func (r *Repository) CountActiveGenres() (int64, error) {
	var count int64
	err := r.db.Table("book_genres").
		Joins("JOIN genres ON genres.id = book_genres.genre_id").
		Joins("JOIN books ON books.id = book_genres.book_id").
		Distinct("book_genres.genre_id").
		Count(&count).Error
	return count, err
}

// --- Genres ---

func (r *Repository) ListGenres() ([]entities.Genre, error) {
	var genres []entities.Genre
	err := r.db.Order("name ASC, id ASC").Find(&genres).Error
	return genres, err
}

func (r *Repository) GetGenre(id uint) (*entities.Genre, error) {
	var genre entities.Genre
	if err := r.db.First(&genre, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &genre, nil
}

func (r *Repository) CreateGenre(genre *entities.Genre) error {
	return r.db.Omit(clause.Associations).Create(genre).Error
}

func (r *Repository) UpdateGenre(genre *entities.Genre) error {
	return r.update(&entities.Genre{}, genre.ID, map[string]any{"name": genre.Name})
}

// DeleteGenre removes the genre and its book associations. Books are kept.
func (r *Repository) DeleteGenre(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM book_genres WHERE genre_id = ?", id).Error; err != nil {
			return err
		}
		return deleteByID(tx, &entities.Genre{}, id)
	})
}

// --- Languages ---

func (r *Repository) ListLanguages() ([]entities.Language, error) {
	var languages []entities.Language
	err := r.db.Order("name ASC, id ASC").Find(&languages).Error
	return languages, err
}

func (r *Repository) GetLanguage(id uint) (*entities.Language, error) {
	var language entities.Language
	if err := r.db.First(&language, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &language, nil
}

func (r *Repository) CreateLanguage(language *entities.Language) error {
	return r.db.Create(language).Error
}

func (r *Repository) UpdateLanguage(language *entities.Language) error {
	return r.update(&entities.Language{}, language.ID, map[string]any{"name": language.Name})
}

// DeleteLanguage removes the language and nulls it on every book that used it.
func (r *Repository) DeleteLanguage(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Book{}).Where("language_id = ?", id).Update("language_id", nil).Error; err != nil {
			return err
		}
		return deleteByID(tx, &entities.Language{}, id)
	})
}

// --- Authors ---

// ListAuthors returns a page of authors ordered by last name, then first name.
// A limit of zero or less returns every author.
func (r *Repository) ListAuthors(limit, offset int) ([]entities.Author, int64, error) {
	var authors []entities.Author
	var total int64

	if err := r.db.Model(&entities.Author{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.Order("last_name ASC, first_name ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&authors).Error
	return authors, total, err
}

// GetAuthor retrieves an author with their books.
func (r *Repository) GetAuthor(id uint) (*entities.Author, error) {
	var author entities.Author
	err := r.db.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("title ASC, id ASC")
	}).First(&author, id).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &author, nil
}

func (r *Repository) CreateAuthor(author *entities.Author) error {
	return r.db.Omit(clause.Associations).Create(author).Error
}

func (r *Repository) UpdateAuthor(author *entities.Author) error {
	return r.update(&entities.Author{}, author.ID, map[string]any{
		"first_name":    author.FirstName,
		"last_name":     author.LastName,
		"date_of_birth": author.DateOfBirth,
		"date_of_death": author.DateOfDeath,
	})
}

// DeleteAuthor removes the author and nulls the author of every book they wrote.
func (r *Repository) DeleteAuthor(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Book{}).Where("author_id = ?", id).Update("author_id", nil).Error; err != nil {
			return err
		}
		return deleteByID(tx, &entities.Author{}, id)
	})
}

// --- Books ---

// ListBooks returns a page of books with their author and genres.
func (r *Repository) ListBooks(limit, offset int) ([]entities.Book, int64, error) {
	var books []entities.Book
	var total int64

	if err := r.db.Model(&entities.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.Preload("Author").Preload("Genres", func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC")
	}).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&books).Error
	return books, total, err
}

// GetBook retrieves a book with its author, language, genres and instances.
func (r *Repository) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Author").Preload("Language").
		Preload("Genres", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		Preload("Instances", func(db *gorm.DB) *gorm.DB {
			return db.Order(loanOrder)
		}).
		First(&book, id).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &book, nil
}

// CreateBook inserts the book and links it to genreIDs.
func (r *Repository) CreateBook(book *entities.Book, genreIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, book.AuthorID, book.LanguageID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(book).Error; err != nil {
			return err
		}
		return replaceGenres(tx, book, genreIDs)
	})
}

// UpdateBook saves the book's scalar fields. A nil genreIDs leaves the genres untouched.
func (r *Repository) UpdateBook(book *entities.Book, genreIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := checkReferences(tx, book.AuthorID, book.LanguageID); err != nil {
			return err
		}
		err := update(tx, &entities.Book{}, book.ID, map[string]any{
			"title":       book.Title,
			"summary":     book.Summary,
			"isbn":        book.ISBN,
			"author_id":   book.AuthorID,
			"language_id": book.LanguageID,
		})
		if err != nil {
			return err
		}
		if genreIDs == nil {
			return nil
		}
		return replaceGenres(tx, book, genreIDs)
	})
}

// DeleteBook removes the book, its genre links, and nulls the book on its instances.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.BookInstance{}).Where("book_id = ?", id).Update("book_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM book_genres WHERE book_id = ?", id).Error; err != nil {
			return err
		}
		return deleteByID(tx, &entities.Book{}, id)
	})
}

func replaceGenres(tx *gorm.DB, book *entities.Book, genreIDs []uint) error {
	genres := []entities.Genre{}
	if len(genreIDs) > 0 {
		if err := tx.Where("id IN ?", genreIDs).Find(&genres).Error; err != nil {
			return err
		}
		if len(genres) != len(uniqueIDs(genreIDs)) {
			return fmt.Errorf("%w: genre", ErrInvalidReference)
		}
	}
	if err := tx.Model(book).Association("Genres").Replace(genres); err != nil {
		return err
	}
	book.Genres = genres
	return nil
}

func checkReferences(tx *gorm.DB, authorID, languageID *uint) error {
	if authorID != nil {
		if err := checkReference(tx, &entities.Author{}, *authorID, "author"); err != nil {
			return err
		}
	}
	if languageID != nil {
		if err := checkReference(tx, &entities.Language{}, *languageID, "language"); err != nil {
			return err
		}
	}
	return nil
}

func checkReference(tx *gorm.DB, model any, id uint, name string) error {
	err := exists(tx, model, id)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrInvalidReference, name, id)
	}
	return err
}

// --- Book instances ---

// InstanceFilter narrows ListInstances. Zero fields match everything.
type InstanceFilter struct {
	Status    entities.LoanStatus
	DueAfter  *time.Time // inclusive
	DueBefore *time.Time // exclusive
}

// ListInstances returns a page of instances matching filter ordered by due date.
func (r *Repository) ListInstances(filter InstanceFilter, limit, offset int) ([]entities.BookInstance, int64, error) {
	query := r.db.Model(&entities.BookInstance{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DueAfter != nil {
		query = query.Where("due_back >= ?", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_back < ?", *filter.DueBefore)
	}
	return r.listInstances(query, limit, offset)
}

// ListInstancesForBook returns every instance of a book ordered by due date.
func (r *Repository) ListInstancesForBook(bookID uint) ([]entities.BookInstance, error) {
	var instances []entities.BookInstance
	err := r.db.Where("book_id = ?", bookID).Order(loanOrder).Find(&instances).Error
	return instances, err
}

// ListLoanedByBorrower returns instances on loan to borrowerID, soonest due first.
func (r *Repository) ListLoanedByBorrower(borrowerID uint, limit, offset int) ([]entities.BookInstance, int64, error) {
	query := r.db.Model(&entities.BookInstance{}).
		Where("borrower_id = ? AND status = ?", borrowerID, entities.LoanStatusOnLoan)
	return r.listInstances(query, limit, offset)
}

// ListLoaned returns every instance currently on loan, soonest due first.
func (r *Repository) ListLoaned(limit, offset int) ([]entities.BookInstance, int64, error) {
	query := r.db.Model(&entities.BookInstance{}).Where("status = ?", entities.LoanStatusOnLoan)
	return r.listInstances(query, limit, offset)
}

func (r *Repository) listInstances(query *gorm.DB, limit, offset int) ([]entities.BookInstance, int64, error) {
	var instances []entities.BookInstance
	var total int64

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := query.Session(&gorm.Session{}).Preload("Book").Preload("Borrower").Order(loanOrder)
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&instances).Error
	return instances, total, err
}

// GetInstance retrieves an instance with its book.
func (r *Repository) GetInstance(id uuid.UUID) (*entities.BookInstance, error) {
	var instance entities.BookInstance
	if err := r.db.Preload("Book").Where("id = ?", id).First(&instance).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &instance, nil
}

func (r *Repository) CreateInstance(instance *entities.BookInstance) error {
	if instance.BookID != nil {
		if err := checkReference(r.db, &entities.Book{}, *instance.BookID, "book"); err != nil {
			return err
		}
	}
	return r.db.Omit(clause.Associations).Create(instance).Error
}

func (r *Repository) UpdateInstance(instance *entities.BookInstance) error {
	if instance.BookID != nil {
		if err := checkReference(r.db, &entities.Book{}, *instance.BookID, "book"); err != nil {
			return err
		}
	}
	return r.updateInstance(instance.ID, map[string]any{
		"book_id":     instance.BookID,
		"imprint":     instance.Imprint,
		"due_back":    instance.DueBack,
		"status":      instance.Status,
		"borrower_id": instance.BorrowerID,
	})
}

// SetLoan records the loan state of an instance.
func (r *Repository) SetLoan(id uuid.UUID, status entities.LoanStatus, borrowerID *uint, dueBack *time.Time) error {
	return r.updateInstance(id, map[string]any{
		"status":      status,
		"borrower_id": borrowerID,
		"due_back":    dueBack,
	})
}

func (r *Repository) DeleteInstance(id uuid.UUID) error {
	result := r.db.Where("id = ?", id).Delete(&entities.BookInstance{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) updateInstance(id uuid.UUID, fields map[string]any) error {
	result := r.db.Model(&entities.BookInstance{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.instanceExists(id)
	}
	return nil
}

func (r *Repository) instanceExists(id uuid.UUID) error {
	var count int64
	if err := r.db.Model(&entities.BookInstance{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// --- helpers ---

func (r *Repository) update(model any, id uint, fields map[string]any) error {
	return update(r.db, model, id, fields)
}

func update(tx *gorm.DB, model any, id uint, fields map[string]any) error {
	if err := exists(tx, model, id); err != nil {
		return err
	}
	return tx.Model(model).Where("id = ?", id).Updates(fields).Error
}

func exists(tx *gorm.DB, model any, id uint) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(tx *gorm.DB, model any, id uint) error {
	result := tx.Delete(model, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
