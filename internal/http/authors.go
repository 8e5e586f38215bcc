package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/mrlokans/locallibrary/internal/entities"
)

// AuthorSummary is a row of the author list.
type AuthorSummary struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	DateOfDeath *time.Time `json:"date_of_death"`
	URL         string     `json:"url"`
}

// AuthorDetail is the context of the author detail page.
type AuthorDetail struct {
	AuthorSummary
	Books []BookSummary `json:"books"`
}

func newAuthorSummary(a entities.Author) AuthorSummary {
	return AuthorSummary{
		ID:          a.ID,
		Name:        a.String(),
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		DateOfBirth: a.DateOfBirth,
		DateOfDeath: a.DateOfDeath,
		URL:         a.AbsoluteURL(),
	}
}

type AuthorsController struct {
	store AuthorStore
}

func NewAuthorsController(store AuthorStore) *AuthorsController {
	return &AuthorsController{store: store}
}

// List returns authors ordered by last name, then first name.
// GET /catalog/authors?page=N
func (ac *AuthorsController) List(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	authors, total, err := ac.store.ListAuthors(AuthorsPageSize, pageOffset(page, AuthorsPageSize))
	if err != nil {
		respondInternalError(c, err, "list authors")
		return
	}

	respondPage(c, lo.Map(authors, func(a entities.Author, _ int) AuthorSummary { return newAuthorSummary(a) }),
		page, AuthorsPageSize, total)
}

// Detail returns an author with the books they wrote.
// GET /catalog/author/:id
func (ac *AuthorsController) Detail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	author, err := ac.store.GetAuthor(id)
	if err != nil {
		respondStoreError(c, err, "author", "get author")
		return
	}

	books := lo.Map(author.Books, func(b entities.Book, _ int) BookSummary {
		b.Author = author
		return newBookSummary(b)
	})
	c.JSON(http.StatusOK, AuthorDetail{AuthorSummary: newAuthorSummary(*author), Books: books})
}
