package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	ledger := NewDomainGroup("ledger", "/ledger")
	ledger.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(ledger)

	// Nothing answers before Setup
	assert.Equal(t, http.StatusNotFound, serve(engine, "GET", "/api/v1/ledger/ping").Code)

	r.Setup()
	w := serve(engine, "GET", "/api/v1/ledger/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("carries name and prefix", func(t *testing.T) {
		g := NewDomainGroup("ledger", "/ledger")
		assert.Equal(t, "ledger", g.Name())
		assert.Equal(t, "/ledger", g.Prefix())
	})

	t.Run("records each verb", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("ledger", "/ledger")
		g.GET("/documents", func(c *gin.Context) { c.String(http.StatusOK, "listed") }).
			POST("/documents", func(c *gin.Context) { c.String(http.StatusCreated, "created") }).
			PUT("/documents/:id/items/:item_id", func(c *gin.Context) { c.String(http.StatusOK, "updated") }).
			DELETE("/documents/:id", func(c *gin.Context) { c.String(http.StatusNoContent, "") })

		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method string
			path   string
			status int
		}{
			{"GET", "/api/v1/ledger/documents", http.StatusOK},
			{"POST", "/api/v1/ledger/documents", http.StatusCreated},
			{"PUT", "/api/v1/ledger/documents/1/items/2", http.StatusOK},
			{"DELETE", "/api/v1/ledger/documents/1", http.StatusNoContent},
		}
		for _, tt := range tests {
			w := serve(engine, tt.method, tt.path)
			assert.Equal(t, tt.status, w.Code, "%s %s", tt.method, tt.path)
		}
	})

	t.Run("applies group middleware to every route", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("ledger", "/ledger")
		g.Use(func(c *gin.Context) {
			c.Header("X-Ledger-Group", "applied")
			c.Next()
		})
		g.GET("/accounts", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, "GET", "/api/v1/ledger/accounts")
		assert.Equal(t, "applied", w.Header().Get("X-Ledger-Group"))
	})

	t.Run("mounts subgroups under the parent prefix", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("ledger", "/ledger")

		documents := g.Group("documents", "/documents")
		documents.GET("", func(c *gin.Context) { c.String(http.StatusOK, "documents list") })
		payments := g.Group("payments", "/payments")
		payments.GET("", func(c *gin.Context) { c.String(http.StatusOK, "payments list") })

		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, "GET", "/api/v1/ledger/documents")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "documents list", w.Body.String())

		w = serve(engine, "GET", "/api/v1/ledger/payments")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "payments list", w.Body.String())
	})
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	ledger := NewDomainGroup("ledger", "/ledger")
	ledger.GET("/documents", func(c *gin.Context) { c.String(http.StatusOK, "documents") })
	system := NewDomainGroup("system", "/system")
	system.GET("/info", func(c *gin.Context) { c.String(http.StatusOK, "info") })

	r.Register(ledger).Register(system).Setup()

	w := serve(engine, "GET", "/api/v1/ledger/documents")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "documents", w.Body.String())

	w = serve(engine, "GET", "/api/v1/system/info")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "info", w.Body.String())
}
