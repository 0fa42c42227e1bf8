package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("transfer", "ok", 0.01)
	m.ObserveOperation("transfer", "ok", 0.02)
	m.ObserveOperation("transfer", "lock_timeout", 5)

	if got := testutil.ToFloat64(m.ledgerOps.WithLabelValues("transfer", "ok")); got != 2 {
		t.Fatalf("expected 2 ok transfers, got %v", got)
	}
	if got := testutil.ToFloat64(m.ledgerOps.WithLabelValues("transfer", "lock_timeout")); got != 1 {
		t.Fatalf("expected 1 lock timeout, got %v", got)
	}
}

func TestInstrumentAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	app := fiber.New()
	app.Use(m.Instrument())
	app.Get("/wallets/:walletId", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/metrics", Handler(reg))

	for _, path := range []string{"/wallets/1", "/wallets/2"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/wallets/:walletId", "204")); got != 2 {
		t.Fatalf("expected 2 requests on the route pattern, got %v", got)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "http_requests_total") {
		t.Fatalf("metrics output missing http_requests_total")
	}
}
