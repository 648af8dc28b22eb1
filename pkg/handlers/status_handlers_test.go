package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"restockbot/internal/models"
	"restockbot/pkg/config"
	"restockbot/pkg/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testService() *HandlerService {
	cfg := &config.Config{
		App:       config.NewAppConfig(),
		Bot:       config.NewBotConfig(),
		Browser:   config.NewBrowserConfig(),
		Telegram:  config.NewTelegramConfig(),
		Server:    config.NewServerConfig(),
		Scheduler: config.NewSchedulerConfig(),
	}
	cat := &config.CategoryConfig{
		Name:     "graphics cards",
		URL:      "https://shop.example/cards",
		Articles: []*config.ItemRule{{Model: []string{"3060"}}},
	}
	cat.Normalize()
	cfg.Categories = []*config.CategoryConfig{cat}

	registry := tracker.NewRegistry()
	registry.Add(tracker.New(cat, tracker.Options{}))

	return NewHandlerService(cfg, registry, nil)
}

func performJSON(t *testing.T, handler gin.HandlerFunc, params gin.Params, out interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Params = params

	handler(c)

	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("response is not valid JSON: %v\n%s", err, w.Body.String())
		}
	}
	return w.Code
}

func TestHealthCheck(t *testing.T) {
	var resp models.HealthResponse
	code := performJSON(t, testService().HealthCheck, nil, &resp)

	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Status != "healthy" || resp.Service != "restockbot" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetTrackers(t *testing.T) {
	var resp []models.TrackerStatus
	code := performJSON(t, testService().GetTrackers, nil, &resp)

	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp) != 1 || resp[0].Name != "graphics cards" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetTrackerByName(t *testing.T) {
	svc := testService()

	var resp models.TrackerStatus
	code := performJSON(t, svc.GetTracker, gin.Params{{Key: "name", Value: "graphics cards"}}, &resp)
	if code != http.StatusOK || resp.Name != "graphics cards" {
		t.Errorf("status = %d, resp = %+v", code, resp)
	}

	var errResp models.ErrorResponse
	code = performJSON(t, svc.GetTracker, gin.Params{{Key: "name", Value: "missing"}}, &errResp)
	if code != http.StatusNotFound || !errResp.Error {
		t.Errorf("status = %d, resp = %+v", code, errResp)
	}
}

func TestGetPurchasesWithoutOrchestrator(t *testing.T) {
	var errResp models.ErrorResponse
	code := performJSON(t, testService().GetPurchases, nil, &errResp)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
}

func TestGetAppConfigMasksSecrets(t *testing.T) {
	svc := testService()
	svc.config.Bot.Credentials = &config.Credentials{Email: "a@b.c", Password: "secret"}
	svc.config.Telegram.BotToken = "123:abc"

	var resp map[string]interface{}
	code := performJSON(t, svc.GetAppConfig, nil, &resp)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	raw, _ := json.Marshal(resp)
	for _, secret := range []string{"secret", "a@b.c", "123:abc"} {
		if strings.Contains(string(raw), secret) {
			t.Errorf("sanitized config leaked %q: %s", secret, raw)
		}
	}
}
