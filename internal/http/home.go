package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// HomeResponse is the context of the catalog home page.
type HomeResponse struct {
	NumBooks              int64 `json:"num_books"`
	NumInstances          int64 `json:"num_instances"`
	NumInstancesAvailable int64 `json:"num_instances_available"`
	NumAuthors            int64 `json:"num_authors"`
	NumGenres             int64 `json:"num_genres"`
	NumGenresActive       int64 `json:"num_genres_active"`
	NumVisits             int   `json:"num_visits"`
}

type HomeController struct {
	stats    StatsStore
	sessions SessionStore
}

// NewHomeController creates the home page controller. A nil sessions store
// disables the visit counter, which then always reports zero.
func NewHomeController(stats StatsStore, sessions SessionStore) *HomeController {
	return &HomeController{stats: stats, sessions: sessions}
}

// Index returns the catalog summary and bumps the caller's visit counter.
// GET / and GET /catalog/
func (hc *HomeController) Index(c *gin.Context) {
	var resp HomeResponse
	counts := []struct {
		dst   *int64
		count func() (int64, error)
	}{
		{&resp.NumBooks, hc.stats.CountBooks},
		{&resp.NumInstances, hc.stats.CountInstances},
		{&resp.NumInstancesAvailable, func() (int64, error) {
			return hc.stats.CountInstancesByStatus(entities.LoanStatusAvailable)
		}},
		{&resp.NumAuthors, hc.stats.CountAuthors},
		{&resp.NumGenres, hc.stats.CountGenres},
		{&resp.NumGenresActive, hc.stats.CountActiveGenres},
	}
	for _, item := range counts {
		n, err := item.count()
		if err != nil {
			respondInternalError(c, err, "home counts")
			return
		}
		*item.dst = n
	}

	if hc.sessions != nil {
		ctx := c.Request.Context()
		resp.NumVisits = hc.sessions.GetInt(ctx, auth.SessionKeyNumVisits)
		hc.sessions.Put(ctx, auth.SessionKeyNumVisits, resp.NumVisits+1)
	}

	c.JSON(http.StatusOK, resp)
}
