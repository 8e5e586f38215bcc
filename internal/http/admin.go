package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mrlokans/locallibrary/internal/admin"
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
)

const (
	entityGenres        = "genres"
	entityLanguages     = "languages"
	entityAuthors       = "authors"
	entityBooks         = "books"
	entityBookInstances = "bookinstances"
)

var adminEntities = []string{entityGenres, entityLanguages, entityAuthors, entityBooks, entityBookInstances}

const dateLayout = "2006-01-02"

// Date is a calendar date encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

func (d *Date) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// --- Requests ---

type genreRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

type languageRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

type authorRequest struct {
	FirstName   string `json:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" binding:"required,max=100"`
	DateOfBirth *Date  `json:"date_of_birth"`
	DateOfDeath *Date  `json:"date_of_death"`
}

type bookRequest struct {
	Title      string `json:"title" binding:"required,max=200"`
	Summary    string `json:"summary" binding:"required,max=1000"`
	ISBN       string `json:"isbn" binding:"required,len=13"`
	AuthorID   *uint  `json:"author_id"`
	LanguageID *uint  `json:"language_id"`
	GenreIDs   []uint `json:"genre_ids"` // omitted keeps the current genres on update
}

type instanceRequest struct {
	BookID     *uint               `json:"book_id"`
	Imprint    string              `json:"imprint" binding:"required,max=200"`
	DueBack    *Date               `json:"due_back"`
	Status     entities.LoanStatus `json:"status" binding:"omitempty,oneof=m o a r"`
	BorrowerID *uint               `json:"borrower_id"`
}

type lendRequest struct {
	BorrowerID uint  `json:"borrower_id" binding:"required"`
	DueBack    *Date `json:"due_back" binding:"required"`
}

func (r authorRequest) author(id uint) *entities.Author {
	return &entities.Author{
		ID:          id,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: r.DateOfBirth.timePtr(),
		DateOfDeath: r.DateOfDeath.timePtr(),
	}
}

func (r bookRequest) book(id uint) *entities.Book {
	return &entities.Book{
		ID:         id,
		Title:      r.Title,
		Summary:    r.Summary,
		ISBN:       r.ISBN,
		AuthorID:   r.AuthorID,
		LanguageID: r.LanguageID,
	}
}

func (r instanceRequest) instance(id uuid.UUID) *entities.BookInstance {
	status := r.Status
	if status == "" {
		status = entities.LoanStatusMaintenance
	}
	return &entities.BookInstance{
		ID:         id,
		BookID:     r.BookID,
		Imprint:    r.Imprint,
		DueBack:    r.DueBack.timePtr(),
		Status:     status,
		BorrowerID: r.BorrowerID,
	}
}

// AdminDetail is a single record with the children its registry entry inlines.
type AdminDetail struct {
	Entity  string         `json:"entity"`
	Record  any            `json:"record"`
	Inlines map[string]any `json:"inlines,omitempty"`
}

// --- Rows ---

func genreRow(g entities.Genre) map[string]any {
	return map[string]any{"id": g.ID, "name": g.Name}
}

func languageRow(l entities.Language) map[string]any {
	return map[string]any{"id": l.ID, "name": l.Name}
}

func authorRow(a entities.Author) map[string]any {
	return map[string]any{
		"id":            a.ID,
		"first_name":    a.FirstName,
		"last_name":     a.LastName,
		"date_of_birth": a.DateOfBirth,
		"date_of_death": a.DateOfDeath,
	}
}

func bookRow(b entities.Book) map[string]any {
	return map[string]any{
		"id":            b.ID,
		"title":         b.Title,
		"author":        authorName(b.Author),
		"display_genre": b.DisplayGenre(),
	}
}

func instanceRow(bi entities.BookInstance) map[string]any {
	row := map[string]any{
		"id":       bi.ID.String(),
		"book":     "",
		"status":   bi.Status,
		"borrower": nil,
		"due_back": bi.DueBack,
	}
	if bi.Book != nil {
		row["book"] = bi.Book.Title
	}
	if bi.Borrower != nil {
		row["borrower"] = bi.Borrower.Username
	}
	return row
}

// AdminController serves the JSON admin interface described by the admin registry.
type AdminController struct {
	store    AdminStore
	users    UserLookup
	registry *admin.Registry
	audit    AuditLogger
}

// NewAdminController creates the admin controller. auditLog may be nil.
func NewAdminController(store AdminStore, userLookup UserLookup, registry *admin.Registry, auditLog AuditLogger) *AdminController {
	return &AdminController{
		store:    store,
		users:    userLookup,
		registry: registry,
		audit:    auditLog,
	}
}

// RegisterRoutes mounts the admin API on group. returnGuard protects marking
// copies as returned.
func (ac *AdminController) RegisterRoutes(group *gin.RouterGroup, returnGuard gin.HandlerFunc) {
	group.GET("", ac.Registry)
	group.GET("/:entity", ac.List)
	group.POST("/:entity", ac.Create)
	group.GET("/:entity/:id", ac.Detail)
	group.PUT("/:entity/:id", ac.Update)
	group.DELETE("/:entity/:id", ac.Delete)
	group.POST("/:entity/:id/inline/:child", ac.InlineCreate)
	group.PUT("/:entity/:id/inline/:child/:childID", ac.InlineChange)
	group.DELETE("/:entity/:id/inline/:child/:childID", ac.InlineDelete)
	group.POST("/:entity/:id/lend", ac.Lend)
	group.POST("/:entity/:id/return", returnGuard, ac.Return)
}

// Registry returns the admin table.
// GET /admin/api
func (ac *AdminController) Registry(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"entities":      ac.registry.Entities,
		"loan_statuses": entities.LoanStatusChoices,
	})
}

func (ac *AdminController) lookup(c *gin.Context, param string) (*admin.Entity, bool) {
	entity, err := ac.registry.Lookup(c.Param(param))
	if err != nil || !lo.Contains(adminEntities, entity.Name) {
		respondNotFound(c, "admin entity")
		return nil, false
	}
	return entity, true
}

func entityType(name string) string {
	return strings.TrimSuffix(name, "s")
}

func (ac *AdminController) logChange(c *gin.Context, eventType entities.AuditEventType, entity, id, display string, err error) {
	if ac.audit == nil {
		return
	}
	ac.audit.LogChange(auth.ActorFromRequest(c), eventType, entityType(entity), id, display, err)
}

func (ac *AdminController) logLoan(c *gin.Context, action, instanceID, description string, err error) {
	if ac.audit == nil {
		return
	}
	ac.audit.LogLoan(auth.ActorFromRequest(c), action, instanceID, description, err)
}

// --- List ---

// List returns one page of rows projected onto the entity's list_display.
// GET /admin/api/:entity?page=N
func (ac *AdminController) List(c *gin.Context) {
	entity, ok := ac.lookup(c, "entity")
	if !ok {
		return
	}
	page, ok := parsePage(c)
	if !ok {
		return
	}

	rows, total, ok := ac.listRows(c, entity.Name, page)
	if !ok {
		return
	}

	projected := lo.Map(rows, func(row map[string]any, _ int) map[string]any {
		p := entity.Project(row)
		p["id"] = row["id"]
		return p
	})
	respondPage(c, projected, page, AdminListPageSize, total)
}

func (ac *AdminController) listRows(c *gin.Context, name string, page int) ([]map[string]any, int64, bool) {
	limit, offset := AdminListPageSize, pageOffset(page, AdminListPageSize)

	switch name {
	case entityGenres:
		genres, err := ac.store.ListGenres()
		if err != nil {
			respondInternalError(c, err, "admin list genres")
			return nil, 0, false
		}
		return lo.Map(lo.Slice(genres, offset, offset+limit), func(g entities.Genre, _ int) map[string]any {
			return genreRow(g)
		}), int64(len(genres)), true

	case entityLanguages:
		languages, err := ac.store.ListLanguages()
		if err != nil {
			respondInternalError(c, err, "admin list languages")
			return nil, 0, false
		}
		return lo.Map(lo.Slice(languages, offset, offset+limit), func(l entities.Language, _ int) map[string]any {
			return languageRow(l)
		}), int64(len(languages)), true

	case entityAuthors:
		authors, total, err := ac.store.ListAuthors(limit, offset)
		if err != nil {
			respondInternalError(c, err, "admin list authors")
			return nil, 0, false
		}
		return lo.Map(authors, func(a entities.Author, _ int) map[string]any { return authorRow(a) }), total, true

	case entityBooks:
		books, total, err := ac.store.ListBooks(limit, offset)
		if err != nil {
			respondInternalError(c, err, "admin list books")
			return nil, 0, false
		}
		return lo.Map(books, func(b entities.Book, _ int) map[string]any { return bookRow(b) }), total, true

	case entityBookInstances:
		filter, ok := parseInstanceFilter(c)
		if !ok {
			return nil, 0, false
		}
		instances, total, err := ac.store.ListInstances(filter, limit, offset)
		if err != nil {
			respondInternalError(c, err, "admin list instances")
			return nil, 0, false
		}
		return lo.Map(instances, func(bi entities.BookInstance, _ int) map[string]any { return instanceRow(bi) }), total, true
	}

	respondNotFound(c, "admin entity")
	return nil, 0, false
}

// parseInstanceFilter reads the list_filter parameters of book instances:
// ?status=o&due_from=2024-01-01&due_to=2024-02-01
func parseInstanceFilter(c *gin.Context) (catalog.InstanceFilter, bool) {
	var filter catalog.InstanceFilter

	if raw := c.Query("status"); raw != "" {
		status := entities.LoanStatus(raw)
		if !status.IsValid() {
			respondBadRequest(c, "invalid status")
			return filter, false
		}
		filter.Status = status
	}

	for param, dst := range map[string]**time.Time{"due_from": &filter.DueAfter, "due_to": &filter.DueBefore} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			respondBadRequest(c, "invalid "+param)
			return filter, false
		}
		*dst = &t
	}
	return filter, true
}

// --- Detail ---

// Detail returns a record with its inline children.
// GET /admin/api/:entity/:id
func (ac *AdminController) Detail(c *gin.Context) {
	entity, ok := ac.lookup(c, "entity")
	if !ok {
		return
	}
	ac.respondDetail(c, entity, c.Param("id"), http.StatusOK)
}

func (ac *AdminController) respondDetail(c *gin.Context, entity *admin.Entity, rawID string, status int) {
	detail := AdminDetail{Entity: entity.Name}

	if entity.Name == entityBookInstances {
		id, err := uuid.Parse(rawID)
		if err != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		instance, err := ac.store.GetInstance(id)
		if err != nil {
			respondStoreError(c, err, "bookinstance", "admin get instance")
			return
		}
		detail.Record = newInstanceView(*instance, time.Now())
		c.JSON(status, detail)
		return
	}

	id, ok := parseID(c, rawID, "id")
	if !ok {
		return
	}

	var err error
	switch entity.Name {
	case entityGenres:
		var genre *entities.Genre
		if genre, err = ac.store.GetGenre(id); err == nil {
			detail.Record = genre
		}
	case entityLanguages:
		var language *entities.Language
		if language, err = ac.store.GetLanguage(id); err == nil {
			detail.Record = language
		}
	case entityAuthors:
		var author *entities.Author
		if author, err = ac.store.GetAuthor(id); err == nil {
			detail.Record = newAuthorSummary(*author)
			detail.Inlines = map[string]any{
				entityBooks: lo.Map(author.Books, func(b entities.Book, _ int) BookSummary {
					b.Author = author
					return newBookSummary(b)
				}),
			}
		}
	case entityBooks:
		var book *entities.Book
		if book, err = ac.store.GetBook(id); err == nil {
			bookDetail := newBookDetail(book)
			detail.Record = bookDetail
			detail.Inlines = map[string]any{entityBookInstances: bookDetail.Instances}
		}
	}
	if err != nil {
		respondStoreError(c, err, entityType(entity.Name), "admin get "+entity.Name)
		return
	}
	c.JSON(status, detail)
}

// --- Create ---

// Create inserts a new record.
// POST /admin/api/:entity
func (ac *AdminController) Create(c *gin.Context) {
	entity, ok := ac.lookup(c, "entity")
	if !ok {
		return
	}
	ac.create(c, entity, nil)
}

// parentFK is the foreign key forced onto a record created inline.
type parentFK struct {
	field string
	id    uint
}

func (ac *AdminController) create(c *gin.Context, entity *admin.Entity, parent *parentFK) {
	var (
		rawID   string
		display string
		err     error
	)

	switch entity.Name {
	case entityGenres:
		var req genreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		genre := &entities.Genre{Name: req.Name}
		err = ac.store.CreateGenre(genre)
		rawID, display = idString(genre.ID), genre.String()

	case entityLanguages:
		var req languageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		language := &entities.Language{Name: req.Name}
		err = ac.store.CreateLanguage(language)
		rawID, display = idString(language.ID), language.String()

	case entityAuthors:
		var req authorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		author := req.author(0)
		err = ac.store.CreateAuthor(author)
		rawID, display = idString(author.ID), author.String()

	case entityBooks:
		var req bookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if parent != nil && parent.field == "author_id" {
			req.AuthorID = &parent.id
		}
		book := req.book(0)
		err = ac.store.CreateBook(book, req.GenreIDs)
		rawID, display = idString(book.ID), book.String()

	case entityBookInstances:
		var req instanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if parent != nil && parent.field == "book_id" {
			req.BookID = &parent.id
		}
		if !ac.checkBorrower(c, req.BorrowerID) {
			return
		}
		instance := req.instance(uuid.Nil)
		err = ac.store.CreateInstance(instance)
		rawID, display = instance.ID.String(), instance.ID.String()
	}

	ac.logChange(c, entities.AuditEventCreate, entity.Name, rawID, display, err)
	if err != nil {
		respondStoreError(c, err, entityType(entity.Name), "admin create "+entity.Name)
		return
	}
	ac.respondDetail(c, entity, rawID, http.StatusCreated)
}

// checkBorrower responds with 400 when borrowerID names no user.
func (ac *AdminController) checkBorrower(c *gin.Context, borrowerID *uint) bool {
	if borrowerID == nil || ac.users == nil {
		return true
	}
	if _, err := ac.users.GetUserByID(*borrowerID); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondBadRequest(c, "borrower does not exist")
		} else {
			respondInternalError(c, err, "admin check borrower")
		}
		return false
	}
	return true
}

// --- Update ---

// Update replaces the editable fields of a record.
// PUT /admin/api/:entity/:id
func (ac *AdminController) Update(c *gin.Context) {
	entity, ok := ac.lookup(c, "entity")
	if !ok {
		return
	}
	ac.update(c, entity, c.Param("id"))
}

func (ac *AdminController) update(c *gin.Context, entity *admin.Entity, rawID string) {
	var (
		display string
		err     error
	)

	if entity.Name == entityBookInstances {
		id, parseErr := uuid.Parse(rawID)
		if parseErr != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		var req instanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if !ac.checkBorrower(c, req.BorrowerID) {
			return
		}
		err = ac.store.UpdateInstance(req.instance(id))
		ac.logChange(c, entities.AuditEventUpdate, entity.Name, rawID, rawID, err)
		if err != nil {
			respondStoreError(c, err, "bookinstance", "admin update instance")
			return
		}
		ac.respondDetail(c, entity, rawID, http.StatusOK)
		return
	}

	id, ok := parseID(c, rawID, "id")
	if !ok {
		return
	}

	switch entity.Name {
	case entityGenres:
		var req genreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		genre := &entities.Genre{ID: id, Name: req.Name}
		err = ac.store.UpdateGenre(genre)
		display = genre.String()

	case entityLanguages:
		var req languageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		language := &entities.Language{ID: id, Name: req.Name}
		err = ac.store.UpdateLanguage(language)
		display = language.String()

	case entityAuthors:
		var req authorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		author := req.author(id)
		err = ac.store.UpdateAuthor(author)
		display = author.String()

	case entityBooks:
		var req bookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		book := req.book(id)
		err = ac.store.UpdateBook(book, req.GenreIDs)
		display = book.String()
	}

	ac.logChange(c, entities.AuditEventUpdate, entity.Name, rawID, display, err)
	if err != nil {
		respondStoreError(c, err, entityType(entity.Name), "admin update "+entity.Name)
		return
	}
	ac.respondDetail(c, entity, rawID, http.StatusOK)
}

// --- Delete ---

// Delete removes a record. References to it are nulled, never cascaded.
// DELETE /admin/api/:entity/:id
func (ac *AdminController) Delete(c *gin.Context) {
	entity, ok := ac.lookup(c, "entity")
	if !ok {
		return
	}
	ac.delete(c, entity, c.Param("id"))
}

func (ac *AdminController) delete(c *gin.Context, entity *admin.Entity, rawID string) {
	var err error

	if entity.Name == entityBookInstances {
		id, parseErr := uuid.Parse(rawID)
		if parseErr != nil {
			respondBadRequest(c, "invalid id")
			return
		}
		err = ac.store.DeleteInstance(id)
	} else {
		id, ok := parseID(c, rawID, "id")
		if !ok {
			return
		}
		switch entity.Name {
		case entityGenres:
			err = ac.store.DeleteGenre(id)
		case entityLanguages:
			err = ac.store.DeleteLanguage(id)
		case entityAuthors:
			err = ac.store.DeleteAuthor(id)
		case entityBooks:
			err = ac.store.DeleteBook(id)
		}
	}

	ac.logChange(c, entities.AuditEventDelete, entity.Name, rawID, "", err)
	if err != nil {
		respondStoreError(c, err, entityType(entity.Name), "admin delete "+entity.Name)
		return
	}
	respondSuccess(c, entityType(entity.Name)+" deleted")
}

// --- Inlines ---

// inline resolves the parent entity, the inline declaration and the parent id.
func (ac *AdminController) inline(c *gin.Context) (*admin.Entity, *admin.Inline, uint, bool) {
	parent, ok := ac.lookup(c, "entity")
	if !ok {
		return nil, nil, 0, false
	}
	inline, ok := parent.Inline(c.Param("child"))
	if !ok {
		respondNotFound(c, "inline")
		return nil, nil, 0, false
	}
	parentID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, nil, 0, false
	}

	var err error
	switch parent.Name {
	case entityAuthors:
		_, err = ac.store.GetAuthor(parentID)
	case entityBooks:
		_, err = ac.store.GetBook(parentID)
	}
	if err != nil {
		respondStoreError(c, err, entityType(parent.Name), "admin inline parent")
		return nil, nil, 0, false
	}
	return parent, inline, parentID, true
}

// InlineCreate adds a child record bound to its parent.
// POST /admin/api/:entity/:id/inline/:child
func (ac *AdminController) InlineCreate(c *gin.Context) {
	_, inline, parentID, ok := ac.inline(c)
	if !ok {
		return
	}
	if !inline.CanAdd {
		respondForbidden(c, "adding "+inline.Entity+" inline is not permitted")
		return
	}
	child, err := ac.registry.Lookup(inline.Entity)
	if err != nil {
		respondNotFound(c, "admin entity")
		return
	}
	ac.create(c, child, &parentFK{field: inline.ForeignKey, id: parentID})
}

// InlineChange edits a child through its parent when the registry allows it.
// PUT /admin/api/:entity/:id/inline/:child/:childID
func (ac *AdminController) InlineChange(c *gin.Context) {
	_, inline, parentID, ok := ac.inline(c)
	if !ok {
		return
	}
	if !inline.CanChange {
		respondForbidden(c, "changing "+inline.Entity+" inline is not permitted")
		return
	}
	child, ok := ac.inlineChild(c, inline, parentID)
	if !ok {
		return
	}
	ac.update(c, child, c.Param("childID"))
}

// InlineDelete removes a child through its parent when the registry allows it.
// DELETE /admin/api/:entity/:id/inline/:child/:childID
func (ac *AdminController) InlineDelete(c *gin.Context) {
	_, inline, parentID, ok := ac.inline(c)
	if !ok {
		return
	}
	if !inline.CanDelete {
		respondForbidden(c, "deleting "+inline.Entity+" inline is not permitted")
		return
	}
	child, ok := ac.inlineChild(c, inline, parentID)
	if !ok {
		return
	}
	ac.delete(c, child, c.Param("childID"))
}

// inlineChild checks that :childID belongs to the parent.
func (ac *AdminController) inlineChild(c *gin.Context, inline *admin.Inline, parentID uint) (*admin.Entity, bool) {
	child, err := ac.registry.Lookup(inline.Entity)
	if err != nil {
		respondNotFound(c, "admin entity")
		return nil, false
	}

	var owner *uint
	rawID := c.Param("childID")
	switch child.Name {
	case entityBooks:
		id, ok := parseID(c, rawID, "id")
		if !ok {
			return nil, false
		}
		book, err := ac.store.GetBook(id)
		if err != nil {
			respondStoreError(c, err, "book", "admin inline child")
			return nil, false
		}
		owner = book.AuthorID
	case entityBookInstances:
		id, err := uuid.Parse(rawID)
		if err != nil {
			respondBadRequest(c, "invalid childID")
			return nil, false
		}
		instance, err := ac.store.GetInstance(id)
		if err != nil {
			respondStoreError(c, err, "bookinstance", "admin inline child")
			return nil, false
		}
		owner = instance.BookID
	}

	if owner == nil || *owner != parentID {
		respondNotFound(c, entityType(child.Name))
		return nil, false
	}
	return child, true
}

// --- Loans ---

func (ac *AdminController) loanTarget(c *gin.Context) (uuid.UUID, bool) {
	if c.Param("entity") != entityBookInstances {
		respondNotFound(c, "loan action")
		return uuid.Nil, false
	}
	return parseUUIDParam(c, "id")
}

// Lend marks a copy as on loan to a borrower until a due date.
// POST /admin/api/bookinstances/:id/lend
func (ac *AdminController) Lend(c *gin.Context) {
	id, ok := ac.loanTarget(c)
	if !ok {
		return
	}

	var req lendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if !ac.checkBorrower(c, &req.BorrowerID) {
		return
	}

	instance, err := ac.store.GetInstance(id)
	if err != nil {
		respondStoreError(c, err, "bookinstance", "admin lend")
		return
	}
	if conflict := lendConflict(instance, req.BorrowerID); conflict != "" {
		ac.logLoan(c, "lend", id.String(), fmt.Sprintf("Refused to lend %s to user %d", id, req.BorrowerID), errors.New(conflict))
		respondConflict(c, conflict)
		return
	}

	dueBack := req.DueBack.timePtr()
	err = ac.store.SetLoan(id, entities.LoanStatusOnLoan, &req.BorrowerID, dueBack)
	ac.logLoan(c, "lend", id.String(),
		fmt.Sprintf("Lent %s to user %d until %s", id, req.BorrowerID, dueBack.Format(dateLayout)), err)
	if err != nil {
		respondStoreError(c, err, "bookinstance", "admin lend")
		return
	}

	entity, _ := ac.registry.Lookup(entityBookInstances)
	ac.respondDetail(c, entity, id.String(), http.StatusOK)
}

// lendConflict explains why the copy cannot go to borrowerID, or returns "".
// Renewing a loan to its current borrower is allowed.
func lendConflict(instance *entities.BookInstance, borrowerID uint) string {
	switch instance.Status {
	case entities.LoanStatusMaintenance:
		return "copy is under maintenance"
	case entities.LoanStatusOnLoan:
		if instance.BorrowerID == nil || *instance.BorrowerID != borrowerID {
			return "copy is already on loan to another borrower"
		}
	}
	return ""
}

// Return marks a copy as available again and clears its borrower and due date.
// POST /admin/api/bookinstances/:id/return
func (ac *AdminController) Return(c *gin.Context) {
	id, ok := ac.loanTarget(c)
	if !ok {
		return
	}

	err := ac.store.SetLoan(id, entities.LoanStatusAvailable, nil, nil)
	ac.logLoan(c, "return", id.String(), fmt.Sprintf("Returned %s", id), err)
	if err != nil {
		respondStoreError(c, err, "bookinstance", "admin return")
		return
	}

	entity, _ := ac.registry.Lookup(entityBookInstances)
	ac.respondDetail(c, entity, id.String(), http.StatusOK)
}
