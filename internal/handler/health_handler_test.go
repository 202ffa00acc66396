package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"labinsight/internal/handler"
	"labinsight/mocks"
)

func newHealthRouter(h *handler.HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func TestHealthHandler_Liveness(t *testing.T) {
	archive := new(mocks.MockArchiveService)
	r := newHealthRouter(handler.NewHealthHandler(archive))

	w := serve(r, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	archive.AssertNotCalled(t, "Ping", mock.Anything)
}

func TestHealthHandler_Readiness(t *testing.T) {
	archive := new(mocks.MockArchiveService)
	archive.On("Ping", mock.Anything).Return(nil)

	w := serve(newHealthRouter(handler.NewHealthHandler(archive)), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_Readiness_Unavailable(t *testing.T) {
	archive := new(mocks.MockArchiveService)
	archive.On("Ping", mock.Anything).Return(errors.New("connection refused"))

	w := serve(newHealthRouter(handler.NewHealthHandler(archive)), http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}
