package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kindle-enex/internal/database"
	"github.com/mrlokans/kindle-enex/internal/database/conversions"
	"github.com/mrlokans/kindle-enex/internal/entities"
)

func setupHealthTestDB(t *testing.T) *database.Database {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func serveHealth(controller *HealthController, path string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/health", controller.Status)
	router.GET("/ping", controller.Ping)
	router.GET("/api/stats", controller.Stats)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthController_Status(t *testing.T) {
	closedDB := func(t *testing.T) *database.Database {
		db := setupHealthTestDB(t)
		db.Close()
		return db
	}

	tests := []struct {
		name          string
		db            func(t *testing.T) *database.Database
		wantCode      int
		wantStatus    string
		wantDBCheck   string
		containsCheck bool
	}{
		{
			name:        "healthy with open database",
			db:          setupHealthTestDB,
			wantCode:    http.StatusOK,
			wantStatus:  "healthy",
			wantDBCheck: "ok",
		},
		{
			name:        "healthy without database",
			db:          func(*testing.T) *database.Database { return nil },
			wantCode:    http.StatusOK,
			wantStatus:  "healthy",
			wantDBCheck: "not configured",
		},
		{
			name:          "unhealthy after database is closed",
			db:            closedDB,
			wantCode:      http.StatusServiceUnavailable,
			wantStatus:    "unhealthy",
			wantDBCheck:   "error",
			containsCheck: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := serveHealth(NewHealthController(tt.db(t), "1.4.0"), "/health")

			assert.Equal(t, tt.wantCode, w.Code)

			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Equal(t, "1.4.0", response.Version)
			assert.Contains(t, response.Time, "T")
			if tt.containsCheck {
				assert.Contains(t, response.Checks["database"], tt.wantDBCheck)
			} else {
				assert.Equal(t, tt.wantDBCheck, response.Checks["database"])
			}
		})
	}

	t.Run("omits empty version", func(t *testing.T) {
		w := serveHealth(NewHealthController(nil, ""), "/health")
		assert.NotContains(t, w.Body.String(), "version")
	})
}

func TestHealthController_Ping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := serveHealth(NewHealthController(nil, ""), "/ping")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestHealthController_Stats(t *testing.T) {
	t.Run("counts conversions per status", func(t *testing.T) {
		db := setupHealthTestDB(t)
		repo := conversions.NewRepository(db.DB)
		for _, status := range []entities.ConversionStatus{
			entities.ConversionStatusCompleted,
			entities.ConversionStatusCompleted,
			entities.ConversionStatusFailed,
		} {
			require.NoError(t, repo.Save(&entities.Conversion{Status: status, Title: "Meditations"}))
		}

		w := serveHealth(NewHealthController(db, ""), "/api/stats")
		require.Equal(t, http.StatusOK, w.Code)

		var stats StatsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, StatsResponse{Completed: 2, Failed: 1, Total: 3}, stats)
	})

	t.Run("zeroes without database", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		w := serveHealth(NewHealthController(nil, ""), "/api/stats")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"completed":0,"failed":0,"total":0}`, w.Body.String())
	})
}
