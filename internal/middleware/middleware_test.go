package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.Use(gin.CustomRecovery(HandlePanics()))
	r.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic-error", func(c *gin.Context) {
		panic(errors.New("boom"))
	})
	r.GET("/panic-value", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func TestHandlePanics(t *testing.T) {
	r := setupRouter()

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{path: "/ok", wantStatus: http.StatusNoContent},
		{path: "/panic-error", wantStatus: http.StatusInternalServerError, wantBody: "boom"},
		{path: "/panic-value", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}
