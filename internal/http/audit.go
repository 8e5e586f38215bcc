package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// EventLister reads the audit log. *audit.Service satisfies it.
type EventLister interface {
	ListEvents(filter auditrepo.Filter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type EventTypeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var eventTypes = []EventTypeOption{
	{Value: string(entities.AuditEventCreate), Label: "Create"},
	{Value: string(entities.AuditEventUpdate), Label: "Update"},
	{Value: string(entities.AuditEventDelete), Label: "Delete"},
	{Value: string(entities.AuditEventLoan), Label: "Loan"},
	{Value: string(entities.AuditEventAuth), Label: "Authentication"},
}

type AuditController struct {
	events EventLister
}

func NewAuditController(events EventLister) *AuditController {
	return &AuditController{events: events}
}

// GetAuditEvents returns paginated audit events, most recent first.
// GET /admin/audit?page=N&type=loan&user_id=3&entity_type=book&entity_id=12
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	filter := auditrepo.Filter{
		EventType:  entities.AuditEventType(c.Query("type")),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return
		}
		filter.UserID = uint(userID)
	}

	events, total, err := ac.events.ListEvents(filter, AuditEventsPageSize, pageOffset(page, AuditEventsPageSize))
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	respondPage(c, events, page, AuditEventsPageSize, total)
}

// EventTypes lists the audit event types usable as ?type= filters.
// GET /admin/audit/types
func (ac *AuditController) EventTypes(c *gin.Context) {
	c.JSON(http.StatusOK, eventTypes)
}
