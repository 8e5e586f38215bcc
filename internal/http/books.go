package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/mrlokans/locallibrary/internal/entities"
)

// BookSummary is a row of the book list.
type BookSummary struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// InstanceView is a book copy as shown on detail and loan pages.
type InstanceView struct {
	ID          string              `json:"id"`
	Display     string              `json:"display"`
	BookID      *uint               `json:"book_id"`
	BookTitle   string              `json:"book_title"`
	BookURL     string              `json:"book_url,omitempty"`
	Imprint     string              `json:"imprint"`
	Status      entities.LoanStatus `json:"status"`
	StatusLabel string              `json:"status_label"`
	DueBack     *time.Time          `json:"due_back"`
	IsOverdue   bool                `json:"is_overdue"`
	BorrowerID  *uint               `json:"borrower_id,omitempty"`
}

// BookDetail is the context of the book detail page.
type BookDetail struct {
	ID        uint               `json:"id"`
	Title     string             `json:"title"`
	Summary   string             `json:"summary"`
	ISBN      string             `json:"isbn"`
	URL       string             `json:"url"`
	Author    *AuthorSummary     `json:"author"`
	Language  *entities.Language `json:"language"`
	Genres    []entities.Genre   `json:"genres"`
	Genre     string             `json:"display_genre"`
	Instances []InstanceView     `json:"instances"`
}

func authorName(a *entities.Author) string {
	if a == nil {
		return ""
	}
	return a.String()
}

func newBookSummary(b entities.Book) BookSummary {
	return BookSummary{ID: b.ID, Title: b.Title, Author: authorName(b.Author), URL: b.AbsoluteURL()}
}

func newInstanceView(bi entities.BookInstance, now time.Time) InstanceView {
	view := InstanceView{
		ID:          bi.ID.String(),
		Display:     bi.String(),
		BookID:      bi.BookID,
		Imprint:     bi.Imprint,
		Status:      bi.Status,
		StatusLabel: bi.StatusLabel(),
		DueBack:     bi.DueBack,
		IsOverdue:   bi.IsOverdue(now),
		BorrowerID:  bi.BorrowerID,
	}
	if bi.Book != nil {
		view.BookTitle = bi.Book.Title
		view.BookURL = bi.Book.AbsoluteURL()
	}
	return view
}

func newInstanceViews(instances []entities.BookInstance) []InstanceView {
	now := time.Now()
	return lo.Map(instances, func(bi entities.BookInstance, _ int) InstanceView {
		return newInstanceView(bi, now)
	})
}

func newBookDetail(b *entities.Book) BookDetail {
	detail := BookDetail{
		ID:       b.ID,
		Title:    b.Title,
		Summary:  b.Summary,
		ISBN:     b.ISBN,
		URL:      b.AbsoluteURL(),
		Language: b.Language,
		Genres:   b.Genres,
		Genre:    b.DisplayGenre(),
	}
	if detail.Genres == nil {
		detail.Genres = []entities.Genre{}
	}
	if b.Author != nil {
		summary := newAuthorSummary(*b.Author)
		detail.Author = &summary
	}
	for i := range b.Instances {
		b.Instances[i].Book = b
	}
	detail.Instances = newInstanceViews(b.Instances)
	return detail
}

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{store: store}
}

// List returns one page of books.
// GET /catalog/books?page=N
func (bc *BooksController) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	books, total, err := bc.store.ListBooks(BooksPageSize, pageOffset(page, BooksPageSize))
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	respondPage(c, lo.Map(books, func(b entities.Book, _ int) BookSummary { return newBookSummary(b) }),
		page, BooksPageSize, total)
}

// Detail returns a single book with its copies.
// GET /catalog/book/:id
func (bc *BooksController) Detail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBook(id)
	if err != nil {
		respondStoreError(c, err, "book", "get book")
		return
	}

	c.JSON(http.StatusOK, newBookDetail(book))
}
