package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) (record map[string]any, inlines map[string][]map[string]any) {
	t.Helper()
	var resp struct {
		Record  map[string]any              `json:"record"`
		Inlines map[string][]map[string]any `json:"inlines"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Record, resp.Inlines
}

func TestAdmin_Registry(t *testing.T) {
	h := newRouterHarness(t, config.AuthModeLocal)
	_, token := h.account(t, "root", entities.UserRoleAdmin)

	w := h.get("/admin/api", token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Entities []struct {
			Name        string   `json:"name"`
			ListDisplay []string `json:"list_display"`
		} `json:"entities"`
		LoanStatuses []struct {
			Code  string `json:"code"`
			Label string `json:"label"`
		} `json:"loan_statuses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Entities, 5)
	assert.Equal(t, "genres", resp.Entities[0].Name)
	require.Len(t, resp.LoanStatuses, 4)
	assert.Equal(t, "m", resp.LoanStatuses[0].Code)

	assert.Equal(t, http.StatusNotFound, h.get("/admin/api/patrons", token).Code)
}

func TestAdmin_GenreLifecycle(t *testing.T) {
	h := newRouterHarness(t, config.AuthModeLocal)
	_, token := h.account(t, "root", entities.UserRoleAdmin)

	w := h.do(http.MethodPost, "/admin/api/genres", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/admin/api/genres", token, `{"name":"Fantasy"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	record, _ := decodeDetail(t, w)
	id := uint(record["id"].(float64))
	assert.Equal(t, "Fantasy", record["name"])

	w = h.do(http.MethodPut, fmt.Sprintf("/admin/api/genres/%d", id), token, `{"name":"High Fantasy"}`)
	require.Equal(t, http.StatusOK, w.Code)
	record, _ = decodeDetail(t, w)
	assert.Equal(t, "High Fantasy", record["name"])

	w = h.get("/admin/api/genres", token)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	decodePage(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"id": float64(id), "name": "High Fantasy"}, rows[0])

	w = h.do(http.MethodDelete, fmt.Sprintf("/admin/api/genres/%d", id), token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, h.get(fmt.Sprintf("/admin/api/genres/%d", id), token).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, fmt.Sprintf("/admin/api/genres/%d", id), token, "").Code)
}

func TestAdmin_BookListProjection(t *testing.T) {
	h := newRouterHarness(t, config.AuthModeLocal)
	_, token := h.account(t, "libby", entities.UserRoleLibrarian)

	austen := &entities.Author{FirstName: "Jane", LastName: "Austen"}
	require.NoError(t, h.repo.CreateAuthor(austen))
	genres := []string{"Romance", "Classic", "Satire", "Drama"}
	var genreIDs []uint
	for _, name := range genres {
		g := &entities.Genre{Name: name}
		require.NoError(t, h.repo.CreateGenre(g))
		genreIDs = append(genreIDs, g.ID)
	}
	book := &entities.Book{Title: "Emma", Summary: "Matchmaking", AuthorID: &austen.ID}
	require.NoError(t, h.repo.CreateBook(book, genreIDs))

	w := h.get("/admin/api/books", token)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []map[string]any
	decodePage(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{
		"id":            float64(book.ID),
		"title":         "Emma",
		"author":        "Jane Austen",
		"display_genre": "Classic, Drama, Romance",
	}, rows[0])
}

func TestAdmin_CreateBookValidation(t *testing.T) {
	h := newRouterHarness(t, config.AuthModeLocal)
	_, token := h.account(t, "root", entities.UserRoleAdmin)

	w := h.do(http.MethodPost, "/admin/api/books", token, `{"title":"Orphan","summary":"Lost","isbn":"9780141439587","author_id":999}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "author")

	for name, body := range map[string]string{
		"long isbn":       `{"title":"Emma","summary":"Matchmaking","isbn":"97801414395870"}`,
		"short isbn":      `{"title":"Emma","summary":"Matchmaking","isbn":"978014143958"}`,
		"missing isbn":    `{"title":"Emma","summary":"Matchmaking"}`,
		"missing summary": `{"title":"Emma","isbn":"9780141439587"}`,
	} {
		w = h.do(http.MethodPost, "/admin/api/books", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	w = h.do(http.MethodPost, "/admin/api/books", token, `{"title":"Emma","summary":"Matchmaking","isbn":"9780141439587"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/admin/api/authors", token, `{"first_name":"Jane","last_name":"Austen","date_of_birth":"16/12/1775"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/admin/api/bookinstances", token, `{"imprint":"Penguin 2003","status":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/admin/api/bookinstances", token, `{"status":"a"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "imprint is required")
}

func TestAdmin_AuthorInlines(t *testing.T) {
	h := newRouterHarness(t, config.AuthModeLocal)
	_, token := h.account(t, "root", entities.UserRoleAdmin)

	w := h.do(http.MethodPost, "/admin/api/authors", token, `{"first_name":"Jane","last_name":"Austen","date_of_birth":"1775-12-16"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	record, _ := decodeDetail(t, w)
	authorID := uint(record["id"].(float64))

	w = h.do(http.MethodPost, fmt.Sprintf("/admin/api/authors/%d/inline/books", authorID), token, `{"title":"Emma","summary":"Matchmaking","isbn":"9780141439587","author_id":12345}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	book, _ := decodeDetail(t, w)
	bookID := uint(book["id"].(float64))
	author := book["author"].(map[string]any)
	assert.Equal(t, float64(authorID), author["id"], "inline create binds the child to its parent")

	w = h.get(fmt.Sprintf("/admin/api/authors/%d", authorID), token)
	require.Equal(t, http.StatusOK, w.Code)
	_, inlines := decodeDetail(t, w)
	require.Len(t, inlines["books"], 1)
	assert.Equal(t, "Emma", inlines["books"][0]["title"])

	w = h.do(http.MethodPut, fmt.Sprintf("/admin/api/authors/%d/inline/books/%d", authorID, bookID), token, `{"title":"Emma (revised)","summary":"Matchmaking","isbn":"9780141439587"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodDelete, fmt.Sprintf("/admin/api/authors/%d/inline/books/%d", authorID, bookID), token, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, fmt.Sprintf("/admin/api/authors/%d/inline/bookinstances", authorID), token, `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/admin/api/authors/999/inline/books", token, `{"title":"Ghost","summary":"Boo","isbn":"9780000000000"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	stored, err := h.repo.GetBook(bookID)
	require.NoError(t, err)
	assert.Equal(t, "Emma", stored.Title)
}

func TestAdmin_DeleteAuthorNullsBooks(t *testing.T) {
	h := newRouterHarness(t, config.AuthModeLocal)
	_, token := h.account(t, "root", entities.UserRoleAdmin)

	austen := &entities.Author{FirstName: "Jane", LastName: "Austen"}
	require.NoError(t, h.repo.CreateAuthor(austen))
	book := createBook(t, h.repo, "Emma", &austen.ID)

	w := h.do(http.MethodDelete, fmt.Sprintf("/admin/api/authors/%d", austen.ID), token, "")
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := h.repo.GetBook(book.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AuthorID)
}

func TestAdmin_BookInstancesAndLoans(t *testing.T) {
	h := newRouterHarness(t, config.AuthModeLocal)
	_, adminToken := h.account(t, "root", entities.UserRoleAdmin)
	_, librarianToken := h.account(t, "libby", entities.UserRoleLibrarian)
	borrower, _ := h.account(t, "reader", entities.UserRoleMember)
	other, _ := h.account(t, "another", entities.UserRoleMember)

	book := createBook(t, h.repo, "Northanger Abbey", nil)

	w := h.do(http.MethodPost, fmt.Sprintf("/admin/api/books/%d/inline/bookinstances", book.ID), librarianToken, `{"imprint":"Penguin 2003"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	record, _ := decodeDetail(t, w)
	instanceID := record["id"].(string)
	assert.Equal(t, "m", record["status"], "new copies start in maintenance")
	assert.Equal(t, "Northanger Abbey", record["book_title"])

	w = h.get(fmt.Sprintf("/admin/api/books/%d", book.ID), librarianToken)
	require.Equal(t, http.StatusOK, w.Code)
	_, inlines := decodeDetail(t, w)
	require.Len(t, inlines["bookinstances"], 1)

	lend := func(body string) *httptest.ResponseRecorder {
		return h.do(http.MethodPost, "/admin/api/bookinstances/"+instanceID+"/lend", librarianToken, body)
	}
	assert.Equal(t, http.StatusBadRequest, lend(`{"borrower_id":999,"due_back":"2024-06-01"}`).Code)
	assert.Equal(t, http.StatusBadRequest, lend(fmt.Sprintf(`{"borrower_id":%d}`, borrower.ID)).Code)

	w = lend(fmt.Sprintf(`{"borrower_id":%d,"due_back":"2024-06-01"}`, borrower.ID))
	assert.Equal(t, http.StatusConflict, w.Code, "copies under maintenance cannot be lent")

	w = h.do(http.MethodPut, "/admin/api/bookinstances/"+instanceID, librarianToken,
		fmt.Sprintf(`{"book_id":%d,"imprint":"Penguin 2003","status":"a"}`, book.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = lend(fmt.Sprintf(`{"borrower_id":%d,"due_back":"2024-06-01"}`, borrower.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	record, _ = decodeDetail(t, w)
	assert.Equal(t, "o", record["status"])
	assert.Equal(t, float64(borrower.ID), record["borrower_id"])

	w = lend(fmt.Sprintf(`{"borrower_id":%d,"due_back":"2024-06-15"}`, other.ID))
	assert.Equal(t, http.StatusConflict, w.Code, "a copy on loan is not silently reassigned")

	w = lend(fmt.Sprintf(`{"borrower_id":%d,"due_back":"2024-06-15"}`, borrower.ID))
	require.Equal(t, http.StatusOK, w.Code, "the current borrower can renew")
	record, _ = decodeDetail(t, w)
	assert.Equal(t, float64(borrower.ID), record["borrower_id"])
	assert.Contains(t, record["due_back"], "2024-06-15")

	w = h.do(http.MethodPost, "/admin/api/bookinstances/00000000-0000-0000-0000-000000000001/lend", librarianToken,
		fmt.Sprintf(`{"borrower_id":%d,"due_back":"2024-06-01"}`, borrower.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.get("/admin/api/bookinstances?status=o", librarianToken)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	decodePage(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "reader", rows[0]["borrower"])
	assert.Equal(t, "Northanger Abbey", rows[0]["book"])

	assert.Equal(t, http.StatusBadRequest, h.get("/admin/api/bookinstances?status=z", librarianToken).Code)
	assert.Equal(t, http.StatusBadRequest, h.get("/admin/api/bookinstances?due_from=soon", librarianToken).Code)

	w = h.do(http.MethodPost, "/admin/api/bookinstances/"+instanceID+"/return", librarianToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code, "returning needs can_mark_returned")

	w = h.do(http.MethodPost, "/admin/api/bookinstances/"+instanceID+"/return", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	record, _ = decodeDetail(t, w)
	assert.Equal(t, "a", record["status"])
	assert.Nil(t, record["borrower_id"])
	assert.Nil(t, record["due_back"])

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/admin/api/books/1/lend", adminToken, `{}`).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/admin/api/bookinstances/00000000-0000-0000-0000-000000000001/return", adminToken, "").Code)
}

func TestAdmin_MutationsAreAudited(t *testing.T) {
	h := newRouterHarness(t, config.AuthModeLocal)
	admin, token := h.account(t, "root", entities.UserRoleAdmin)

	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/admin/api/languages", token, `{"name":"French"}`).Code)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/admin/api/languages/999", token, "").Code)
	h.auditor.Wait()

	w := h.get("/admin/audit?type=create", token)
	require.Equal(t, http.StatusOK, w.Code)
	var created []entities.AuditEvent
	decodePage(t, w, &created)
	require.Len(t, created, 1)
	assert.Equal(t, admin.ID, created[0].UserID)
	assert.Equal(t, "language", created[0].EntityType)
	assert.Equal(t, entities.AuditStatusSuccess, created[0].Status)

	w = h.get("/admin/audit?type=delete", token)
	require.Equal(t, http.StatusOK, w.Code)
	var deleted []entities.AuditEvent
	decodePage(t, w, &deleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, entities.AuditStatusFailed, deleted[0].Status)

	assert.Equal(t, http.StatusBadRequest, h.get("/admin/audit?user_id=abc", token).Code)
	assert.Equal(t, http.StatusOK, h.get("/admin/audit/types", token).Code)
}
