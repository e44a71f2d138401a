package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/dashboard"
	dashboardfile "github.com/veergo/motorbff/pkg/dashboard/file"
	"github.com/veergo/motorbff/pkg/journey"
	"github.com/veergo/motorbff/pkg/orchestrator"
	"github.com/veergo/motorbff/pkg/resolver"
	"github.com/veergo/motorbff/pkg/services"
	"github.com/veergo/motorbff/pkg/web"
)

func testConfigStore(t *testing.T) *config.Store {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DiffDocument),
		[]byte(`{"pincode": "user.pincode"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ErrorDocument),
		[]byte(`{"COMMERCIAL_VEHICLE": {"priority": 1, "action": "same_node", "message": "This vehicle cannot be insured online"}}`), 0o644))

	store := config.NewStore(config.NewFileSource(dir), slog.Default())
	require.NoError(t, store.Load(t.Context()))

	return store
}

func setupTestApp(t *testing.T, upstream http.HandlerFunc) *fiber.App {
	t.Helper()

	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	logger := slog.Default()
	cfgStore := testConfigStore(t)

	client := orchestrator.NewClient(orchestrator.ClientConfig{
		BaseURL: server.URL,
		AppName: "motorbff-test",
	}, cfgStore, logger, nil, nil)

	executor := resolver.NewExecutor(cfgStore.Current(), nil, logger)
	journeyService := services.NewJourney(client, executor, nil, logger)
	dashboardService := dashboard.NewService(dashboardfile.NewStore(t.TempDir()), logger)

	handlers := web.NewAPIHandlers(journeyService, dashboardService,
		validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()

	j := app.Group("/journey/api/v1")
	j.Post("/next-node", handlers.NextNode)
	j.Post("/segment", handlers.SegmentData)
	j.Get("/proposals/registration/:registrationNumber", handlers.ProposalsByRegistrationNumber)
	j.Get("/proposals/payment/:paymentId", handlers.ProposalByPaymentID)
	j.Get("/proposals/:proposalEkey", handlers.ProposalByEkey)

	d := app.Group("/dashboard/api/v1")
	d.Get("/tabs", handlers.TabNames)
	d.Get("/tab-info", handlers.TabInfo)
	d.Get("/tabs/data", handlers.AllTabData)
	d.Get("/tabs/:name/data", handlers.TabData)
	d.Post("/tabs", handlers.ConfigureTab)
	d.Put("/tabs/:name/format", handlers.SaveTabFormat)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func proposalUpstream(t *testing.T, onUpdate http.HandlerFunc) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && onUpdate != nil {
			onUpdate(w, r)

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ekey": "prop-123",
			"vehicle": map[string]any{
				"is_commercial":       false,
				"registration_number": "KA01AB1234",
			},
		})
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	return body
}

func TestNextNode_InvalidJSON(t *testing.T) {
	app := setupTestApp(t, proposalUpstream(t, nil))

	req := httptest.NewRequest(http.MethodPost, "/journey/api/v1/next-node",
		bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNextNode_MissingJourney(t *testing.T) {
	app := setupTestApp(t, proposalUpstream(t, nil))

	resp := postJSON(t, app, "/journey/api/v1/next-node", map[string]any{
		"data": map[string]any{"proposal_ekey": "prop-123"},
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNextNode_FetchOnly(t *testing.T) {
	app := setupTestApp(t, proposalUpstream(t, nil))

	resp := postJSON(t, app, "/journey/api/v1/next-node", journey.Request{
		Journey: "motor",
		Data:    map[string]any{"proposal_ekey": "prop-123"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "prop-123", data["ekey"])
	assert.Equal(t, "Private", data["vehicle"].(map[string]any)["vehicle_type"])
}

func TestNextNode_UpdateSuccess(t *testing.T) {
	var gotUpdate bool

	app := setupTestApp(t, proposalUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotUpdate = true

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ekey": "prop-123",
			"user": map[string]any{"pincode": "560001"},
		})
	}))

	resp := postJSON(t, app, "/journey/api/v1/next-node", journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeUserInfo,
		Data:        map[string]any{"proposal_ekey": "prop-123", "pincode": "560001"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, gotUpdate)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "prop-123", data["ekey"])
}

func TestNextNode_UpstreamRejection(t *testing.T) {
	app := setupTestApp(t, proposalUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_message": "vehicle type not supported for private-only underwriting",
		})
	}))

	resp := postJSON(t, app, "/journey/api/v1/next-node", journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeUserInfo,
		Data:        map[string]any{"proposal_ekey": "prop-123"},
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "COMMERCIAL_VEHICLE", body["code"])

	details, ok := body["error_details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "same_node", details["action"])
	assert.Equal(t, "This vehicle cannot be insured online", details["message"])
}

func TestSegmentData(t *testing.T) {
	app := setupTestApp(t, proposalUpstream(t, nil))

	resp := postJSON(t, app, "/journey/api/v1/segment", journey.Request{
		Journey: "motor",
		Data:    map[string]any{"proposal_ekey": "prop-123"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "KA01AB1234", data["registration_number"])
}

func TestProposalsByRegistrationNumber(t *testing.T) {
	app := setupTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/api/advisor/proposal_list/KA01AB1234", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{map[string]any{"ekey": "prop-123"}},
		})
	})

	req := httptest.NewRequest(http.MethodGet,
		"/journey/api/v1/proposals/registration/KA01AB1234", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	list, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
}

func TestProposalByEkey(t *testing.T) {
	app := setupTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/api/v1/proposals/prop-123", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"ekey": "prop-123"},
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/journey/api/v1/proposals/prop-123", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConfigureTab_And_TabNames(t *testing.T) {
	listServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]any{
			map[string]any{"ekey": "prop-1"},
			map[string]any{"ekey": "prop-2"},
		})
	}))
	defer listServer.Close()

	app := setupTestApp(t, proposalUpstream(t, nil))

	resp := postJSON(t, app, "/dashboard/api/v1/tabs", dashboard.TabConfig{
		Name: "payments",
		Row:  1,
		List: dashboard.ListRequest{
			Name:   "payments",
			URL:    listServer.URL,
			Method: "GET",
		},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "payments", data["tab_name"])

	rows, ok := data["list_data"].([]any)
	require.True(t, ok)
	assert.Len(t, rows, 2)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/api/v1/tabs", nil)

	listResp, err := app.Test(req)
	require.NoError(t, err)

	names := decodeBody(t, listResp)
	entries, ok := names["data"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "payments", entries[0].(map[string]any)["tab_name"])
}

func TestConfigureTab_MissingURL(t *testing.T) {
	app := setupTestApp(t, proposalUpstream(t, nil))

	resp := postJSON(t, app, "/dashboard/api/v1/tabs", map[string]any{
		"tab_name": "payments",
		"list":     map[string]any{"method": "GET"},
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSaveTabFormat(t *testing.T) {
	app := setupTestApp(t, proposalUpstream(t, nil))

	payload, err := json.Marshal(dashboard.TabFormat{
		Row:           1,
		FieldMappings: map[string]string{"proposal_id": "ekey"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut,
		"/dashboard/api/v1/tabs/payments/format", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
}

func TestTabData_NotConfigured(t *testing.T) {
	app := setupTestApp(t, proposalUpstream(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/dashboard/api/v1/tabs/missing/data", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t, proposalUpstream(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
}
