package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(origins []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(New(origins))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.OPTIONS("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	w := serve(nil, http.MethodGet, "https://anywhere.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	allowed := []string{"https://planner.example/"}
	w = serve(allowed, http.MethodGet, "https://planner.example")
	assert.Equal(t, "https://planner.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = serve(allowed, http.MethodGet, "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(allowed, http.MethodOptions, "https://planner.example")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
