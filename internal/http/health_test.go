package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getHealth(t *testing.T, controller *HealthController) (int, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database is connected", func(t *testing.T) {
		db, _ := setupCatalogDB(t)

		code, response := getHealth(t, NewHealthController(db, "1.0.0"))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Contains(t, response.Time, "T")
	})

	t.Run("returns healthy when database is nil", func(t *testing.T) {
		code, response := getHealth(t, NewHealthController(nil, "1.0.0"))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "not configured", response.Checks["database"])
	})

	t.Run("returns unhealthy when database connection is closed", func(t *testing.T) {
		db, _ := setupCatalogDB(t)
		require.NoError(t, db.Close())

		code, response := getHealth(t, NewHealthController(db, "1.0.0"))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "error")
	})
}

func TestHealthResponse_OmitsEmptyVersion(t *testing.T) {
	jsonBytes, err := json.Marshal(HealthResponse{Status: "healthy", Checks: map[string]string{}})
	require.NoError(t, err)
	assert.NotContains(t, string(jsonBytes), "version")
}
