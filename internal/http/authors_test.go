package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/entities"
)

func authorsRouter(repo *catalog.Repository) *gin.Engine {
	controller := NewAuthorsController(repo)
	router := gin.New()
	router.GET("/catalog/authors", controller.List)
	router.GET("/catalog/author/:id", controller.Detail)
	return router
}

func TestAuthorsController_ListOrdering(t *testing.T) {
	_, repo := setupCatalogDB(t)
	for _, a := range []entities.Author{
		{FirstName: "Emily", LastName: "Bronte"},
		{FirstName: "Jane", LastName: "Austen"},
		{FirstName: "Anne", LastName: "Bronte"},
	} {
		a := a
		require.NoError(t, repo.CreateAuthor(&a))
	}

	w := serve(authorsRouter(repo), http.MethodGet, "/catalog/authors", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var authors []AuthorSummary
	page := decodePage(t, w, &authors)
	assert.Equal(t, AuthorsPageSize, page.PageSize)
	require.Len(t, authors, 3)
	assert.Equal(t, "Jane Austen", authors[0].Name)
	assert.Equal(t, "Anne Bronte", authors[1].Name)
	assert.Equal(t, "Emily Bronte", authors[2].Name)
}

func TestAuthorsController_Detail(t *testing.T) {
	_, repo := setupCatalogDB(t)
	austen := &entities.Author{FirstName: "Jane", LastName: "Austen", DateOfBirth: day(1775, 12, 16), DateOfDeath: day(1817, 7, 18)}
	require.NoError(t, repo.CreateAuthor(austen))
	createBook(t, repo, "Persuasion", &austen.ID)
	createBook(t, repo, "Emma", &austen.ID)

	router := authorsRouter(repo)

	w := serve(router, http.MethodGet, fmt.Sprintf("/catalog/author/%d", austen.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail AuthorDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "Jane Austen", detail.Name)
	assert.Equal(t, fmt.Sprintf("/catalog/author/%d", austen.ID), detail.URL)
	require.NotNil(t, detail.DateOfBirth)
	assert.Equal(t, 1775, detail.DateOfBirth.Year())
	require.Len(t, detail.Books, 2)
	assert.Equal(t, "Emma", detail.Books[0].Title)
	assert.Equal(t, "Jane Austen", detail.Books[0].Author)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/catalog/author/404", nil).Code)
}
