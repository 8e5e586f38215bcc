package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/database"
	"github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupCatalogDB(t *testing.T) (*database.Database, *catalog.Repository) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, catalog.NewRepository(db.DB)
}

func serve(router http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder, data any) PaginatedResponse {
	t.Helper()
	var raw struct {
		PaginatedResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.NoError(t, json.Unmarshal(raw.Data, data))
	return raw.PaginatedResponse
}

func day(year int, month time.Month, d int) *time.Time {
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func createUser(t *testing.T, db *database.Database, username string) *entities.User {
	t.Helper()
	user := &entities.User{Username: username, Email: username + "@example.com", Role: entities.UserRoleMember}
	require.NoError(t, db.DB.Create(user).Error)
	return user
}

func createBook(t *testing.T, repo *catalog.Repository, title string, authorID *uint, genreIDs ...uint) *entities.Book {
	t.Helper()
	book := &entities.Book{Title: title, AuthorID: authorID}
	require.NoError(t, repo.CreateBook(book, genreIDs))
	return book
}

func createInstance(t *testing.T, repo *catalog.Repository, bookID uint, status entities.LoanStatus, borrowerID *uint, dueBack *time.Time) *entities.BookInstance {
	t.Helper()
	instance := &entities.BookInstance{BookID: &bookID, Imprint: "First edition", Status: status, BorrowerID: borrowerID, DueBack: dueBack}
	require.NoError(t, repo.CreateInstance(instance))
	return instance
}
