package http

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kindle-enex/internal/database"
)

func setupSessionManager(t *testing.T) *SessionManager {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	sm, err := NewSessionManager(sqlDB, 2*time.Hour, true)
	require.NoError(t, err)
	return sm
}

func TestNewSessionManager(t *testing.T) {
	sm := setupSessionManager(t)

	assert.Equal(t, "session", sm.Cookie.Name)
	assert.True(t, sm.Cookie.HttpOnly)
	assert.True(t, sm.Cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, sm.Cookie.SameSite)
	assert.Equal(t, 2*time.Hour, sm.Lifetime)
}

func TestSessionManager_Flash(t *testing.T) {
	sm := setupSessionManager(t)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.POST("/put", func(c *gin.Context) {
		sm.PutFlash(c.Request.Context(), Flash{Kind: FlashError, Message: "Error: boom"})
		c.Status(http.StatusNoContent)
	})
	router.GET("/pop", func(c *gin.Context) {
		flash := sm.PopFlash(c.Request.Context())
		if flash == nil {
			c.String(http.StatusOK, "none")
			return
		}
		c.String(http.StatusOK, string(flash.Kind)+": "+flash.Message)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/put", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	pop := func() string {
		req := httptest.NewRequest(http.MethodGet, "/pop", nil)
		req.AddCookie(cookies[0])
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Body.String()
	}

	assert.Equal(t, "error: Error: boom", pop())
	assert.Equal(t, "none", pop())
}

func TestSessionManager_NoCookieWithoutChanges(t *testing.T) {
	sm := setupSessionManager(t)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Result().Cookies())
}
