package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/TronoSfera/Law-sub001/internal/api/http/handlers"
	"github.com/TronoSfera/Law-sub001/internal/auth"
	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/events"
	"github.com/TronoSfera/Law-sub001/internal/observability"
	"github.com/TronoSfera/Law-sub001/internal/repository/memory"
	"github.com/TronoSfera/Law-sub001/internal/secure"
	"github.com/TronoSfera/Law-sub001/internal/service"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "root-password"
)

func newTestApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := memory.New()
	clk := clock.NewFixed(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	metrics := observability.NewMetrics()

	dispatcher := events.NewDispatcher(logger)
	t.Cleanup(func() { _ = dispatcher.Close() })

	box, err := secure.NewBox("router-test-key")
	require.NoError(t, err)

	notifier := service.NewNotificationService(service.NotificationDependencies{
		Store: store, Dispatcher: dispatcher, Clock: clk, Metrics: metrics, Logger: logger,
	})
	billing := service.NewBillingEngine(box, clk, service.BillingConfig{Currency: "RUB", NumberPrefix: "INV"}, logger)
	statuses := service.NewStatusService(service.StatusDependencies{
		Store: store, Billing: billing, Notifier: notifier, Dispatcher: dispatcher, Clock: clk, Metrics: metrics, Logger: logger,
	})
	requests := service.NewRequestService(service.RequestDependencies{
		Store: store, Notifier: notifier, Clock: clk, Logger: logger,
	})
	messages := service.NewMessageService(service.MessageDependencies{
		Store: store, Notifier: notifier, Clock: clk, Logger: logger,
	})
	invoices := service.NewInvoiceService(service.InvoiceDependencies{
		Store: store, Billing: billing, Notifier: notifier, Clock: clk, Metrics: metrics, Logger: logger,
	})
	sla := service.NewSLAService(service.SLADependencies{
		Store: store, Notifier: notifier, Clock: clk, Config: service.DefaultSLAConfig(), Logger: logger,
	})
	dictionary := service.NewDictionaryService(store, clk, time.Minute, logger)
	_, err = dictionary.SeedDefaults(ctx)
	require.NoError(t, err)

	tokens := auth.NewTokenManager("router-test-secret", 60, 60, clk)
	authService := service.NewAuthService(service.AuthDependencies{
		Store: store, Tokens: tokens, BcryptCost: bcrypt.MinCost, Clock: clk, Logger: logger,
	})
	_, err = authService.EnsureBootstrapAdmin(ctx, adminEmail, adminPassword)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("law-api", "test", map[string]handlers.Pinger{"store": store}),
		Auth:           handlers.NewAuthHandler(authService),
		Public:         handlers.NewPublicHandler(requests, messages, notifier, authService),
		AdminRequests:  handlers.NewAdminRequestsHandler(requests, statuses, messages, notifier, billing),
		Invoices:       handlers.NewInvoicesHandler(invoices),
		SLA:            handlers.NewSLAHandler(sla),
		Dictionary:     handlers.NewDictionaryHandler(dictionary),
		Notifications:  handlers.NewNotificationsHandler(notifier),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Repos().AdminUsers),
	})
	return app, store
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	status, env := call(t, app, http.MethodPost, "/auth/staff/login", "", fiber.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status)
	return decode(t, env)["access_token"].(string)
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	app, store := newTestApp(t)
	adminToken := login(t, app, adminEmail, adminPassword)

	status, _ := call(t, app, http.MethodPut, "/admin/dictionary/transitions", adminToken, fiber.Map{"items": []fiber.Map{
		{"topic_code": "civil", "from_status": "NEW", "to_status": "IN_PROGRESS", "enabled": true},
		{"topic_code": "civil", "from_status": "IN_PROGRESS", "to_status": "BILLING", "enabled": true},
		{"topic_code": "civil", "from_status": "BILLING", "to_status": "PAID", "enabled": true},
	}})
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/admin/staff", adminToken, fiber.Map{
		"name": "Иван Петров", "email": "lawyer@example.com", "password": "lawyer-password", "role": "LAWYER",
	})
	require.Equal(t, http.StatusCreated, status)
	lawyerToken := login(t, app, "lawyer@example.com", "lawyer-password")

	status, env := call(t, app, http.MethodPost, "/public/requests", "", fiber.Map{
		"client_name":  "ООО Клиент",
		"client_phone": "+79990001122",
		"topic_code":   "civil",
		"description":  "Договор поставки",
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode(t, env)
	clientToken := created["access_token"].(string)
	track := created["request"].(map[string]any)["track_number"].(string)
	assert.Regexp(t, `^TRK-[0-9A-F]{8}$`, track)

	status, env = call(t, app, http.MethodGet, "/public/requests/me", clientToken, nil)
	require.Equal(t, http.StatusOK, status)
	me := decode(t, env)
	assert.Equal(t, track, me["track_number"])
	assert.Equal(t, "NEW", me["status_code"])

	// the client view hides internal ids
	stored, err := store.Repos().Requests.GetByTrackNumber(context.Background(), track)
	require.NoError(t, err)
	requestID := stored.ID

	status, env = call(t, app, http.MethodPost, "/admin/requests/"+requestID+"/claim", lawyerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, decode(t, env)["assigned_lawyer_id"])

	status, _ = call(t, app, http.MethodPatch, "/admin/requests/"+requestID+"/financials", lawyerToken, fiber.Map{"effective_rate": "4300"})
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, app, http.MethodPost, "/admin/requests/"+requestID+"/status", lawyerToken, fiber.Map{"status": "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), decode(t, env)["notifications_created"])

	status, env = call(t, app, http.MethodPost, "/admin/requests/"+requestID+"/status", lawyerToken, fiber.Map{"status": "BILLING"})
	require.Equal(t, http.StatusOK, status)
	billed := decode(t, env)
	assert.Equal(t, service.BillingIssued, billed["billing_action"])
	invoice := billed["invoice"].(map[string]any)
	assert.Equal(t, "WAITING_PAYMENT", invoice["status"])
	assert.Equal(t, "4300.00", invoice["amount"])
	invoiceID := invoice["id"].(string)

	status, env = call(t, app, http.MethodPost, "/admin/invoices/"+invoiceID+"/pay", lawyerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = call(t, app, http.MethodPost, "/admin/requests/"+requestID+"/status", lawyerToken, fiber.Map{"status": "PAID"})
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)

	status, env = call(t, app, http.MethodPost, "/admin/requests/"+requestID+"/status", adminToken, fiber.Map{"status": "PAID"})
	require.Equal(t, http.StatusOK, status)
	paid := decode(t, env)
	assert.Equal(t, service.BillingPaid, paid["billing_action"])
	assert.NotNil(t, paid["request"].(map[string]any)["paid_at"])

	status, env = call(t, app, http.MethodGet, "/public/requests/me", clientToken, nil)
	require.Equal(t, http.StatusOK, status)
	me = decode(t, env)
	assert.Equal(t, "PAID", me["status_code"])
	assert.Equal(t, "4300.00", me["invoice_amount"])
	assert.Equal(t, true, me["has_unread_updates"])

	status, _ = call(t, app, http.MethodPost, "/public/requests/me/read", clientToken, nil)
	require.Equal(t, http.StatusOK, status)
	_, env = call(t, app, http.MethodGet, "/public/requests/me", clientToken, nil)
	assert.Equal(t, false, decode(t, env)["has_unread_updates"])
}

func TestUnknownRequestIsNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	adminToken := login(t, app, adminEmail, adminPassword)

	status, env := call(t, app, http.MethodPost, "/admin/requests/unknown-id/status", adminToken, fiber.Map{"status": "CLOSED"})
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestAuthFailures(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/auth/staff/login", "", fiber.Map{"email": adminEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env = call(t, app, http.MethodGet, "/admin/sla/snapshot", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)

	status, env = call(t, app, http.MethodPost, "/public/requests", "", fiber.Map{"client_name": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	created := decodeCreated(t, app)
	status, _ = call(t, app, http.MethodGet, "/admin/sla/snapshot", created, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func decodeCreated(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, env := call(t, app, http.MethodPost, "/public/requests", "", fiber.Map{
		"client_name": "Клиент", "client_phone": "+70000000000", "topic_code": "civil",
	})
	require.Equal(t, http.StatusCreated, status)
	return decode(t, env)["access_token"].(string)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := call(t, app, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, _ = call(t, app, http.MethodGet, "/health/live", "", nil)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_requests_total")
}
