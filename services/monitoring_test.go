package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ezfoia/foia_api/services/handlers"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMonitoringMiddlewareRecordsRenderedStatus(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(MonitoringMiddleware(&MonitoringService{}))
	app.Get("/api/v1/requests/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "missing" {
			return shared.NewNotFoundError(nil, "Request not found")
		}
		return c.SendStatus(fiber.StatusOK)
	})

	const route = "/api/v1/requests/:id"
	notFound := httpRequestsTotal.WithLabelValues(route, "GET", "404")
	ok := httpRequestsTotal.WithLabelValues(route, "GET", "200")
	failed := httpRequestsFailedTotal.WithLabelValues(route, "GET")
	succeeded := httpRequestsSuccessfulTotal.WithLabelValues(route, "GET")
	middlewareRoute := httpRequestsTotal.WithLabelValues("/", "GET", "200")

	before := map[string]float64{
		"404":    testutil.ToFloat64(notFound),
		"200":    testutil.ToFloat64(ok),
		"failed": testutil.ToFloat64(failed),
		"ok":     testutil.ToFloat64(succeeded),
		"/":      testutil.ToFloat64(middlewareRoute),
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/requests/missing", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("client should receive 404, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/requests/req-1", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if got := testutil.ToFloat64(notFound) - before["404"]; got != 1 {
		t.Errorf("404 under the route pattern: got %v", got)
	}
	if got := testutil.ToFloat64(failed) - before["failed"]; got != 1 {
		t.Errorf("failed requests: got %v", got)
	}
	if got := testutil.ToFloat64(ok) - before["200"]; got != 1 {
		t.Errorf("200 under the route pattern: got %v", got)
	}
	if got := testutil.ToFloat64(succeeded) - before["ok"]; got != 1 {
		t.Errorf("successful requests: got %v", got)
	}
	if got := testutil.ToFloat64(middlewareRoute) - before["/"]; got != 0 {
		t.Errorf("nothing should be recorded under the middleware route, got %v", got)
	}
	if got := testutil.ToFloat64(httpRequestsActive.WithLabelValues("GET")); got != 0 {
		t.Errorf("no request should be in flight, got %v", got)
	}
}
