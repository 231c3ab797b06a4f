package watchdog

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerInvokedTracksAndClears(t *testing.T) {
	n := New((*logging.TestLogger)(t))
	done := n.HandlerInvoked("test")
	assert.Empty(t, n.Unhealthy())
	done()

	n.mu.Lock()
	count := len(n.curr)
	n.mu.Unlock()
	assert.Zero(t, count)
}

func TestHealthzReportsUnhealthyAfterStuckHandler(t *testing.T) {
	n := New((*logging.TestLogger)(t))
	n.curr[0] = handlerInfo{name: "stuck", start: time.Now().Add(-time.Hour)}

	app := fiber.New()
	app.Get("/healthz", n.Healthz())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthzReportsOKWhenIdle(t *testing.T) {
	n := New((*logging.TestLogger)(t))

	app := fiber.New()
	app.Get("/healthz", n.Healthz())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
