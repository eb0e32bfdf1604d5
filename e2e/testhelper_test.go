package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/autovideo/api/internal/auth"
	"github.com/autovideo/api/internal/bootstrap"
	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/config"
	"github.com/autovideo/api/internal/handler"
	"github.com/autovideo/api/internal/middleware"
	"github.com/autovideo/api/internal/pipeline"
	"github.com/autovideo/api/internal/server"
	"github.com/autovideo/api/internal/service"
	"github.com/autovideo/api/internal/store"
	ws "github.com/autovideo/api/internal/websocket"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app       *fiber.App
	uploadDir string
}

// setupApp creates the same Fiber app as cmd/server with every vendor left
// unconfigured, so each stage serves its mock output.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", LogLevel: "error"},
		Pipeline:  config.PipelineConfig{AutoPublish: false},
		Faces:     config.FacesConfig{MaxUploadMB: 1},
		RateLimit: config.RateLimitConfig{JobsPerHour: 10000, FacesPerHour: 10000},
		Auth:      config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: testJWTSecret},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validate := validator.New()

	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	jobs := store.NewMemoryStore()
	vendors := bootstrap.NewVendors(cfg)
	executor := pipeline.NewExecutor(jobs, vendors.Collaborators(nil, validate), logger)
	orch := pipeline.NewOrchestrator(jobs, executor, cfg.Pipeline.AutoPublish, logger, pipeline.WithObserver(hub))

	dir := t.TempDir()
	faceStore, err := store.NewFaceStore(filepath.Join(dir, "faces.db"))
	if err != nil {
		t.Fatalf("failed to open face store: %v", err)
	}
	uploadDir := filepath.Join(dir, "uploads")
	local, err := client.NewLocalStorage(uploadDir, "/uploads")
	if err != nil {
		t.Fatalf("failed to create upload dir: %v", err)
	}
	faces := service.NewFaceService(faceStore, local, int64(cfg.Faces.MaxUploadMB)*1024*1024)

	app := server.NewApp(cfg, server.Deps{
		Orchestrator: orch,
		Hub:          hub,
		Faces:        faces,
		RateLimiter:  middleware.NewRateLimiter(nil),
		Validator:    validate,
		Health: map[string]handler.HealthCheck{
			"deepseek": func(context.Context) bool { return false },
			"redis":    func(context.Context) bool { return false },
		},
		UploadDir: uploadDir,
	})

	t.Cleanup(func() {
		waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer waitCancel()
		_ = orch.Wait(waitCtx)
		cancel()
		_ = faceStore.Close()
	})

	return &testApp{app: app, uploadDir: uploadDir}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := auth.GenerateToken(testJWTSecret, "test-user-123", "test@example.com", time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// stageStatus returns stages.<name>.status of a job body.
func stageStatus(t *testing.T, job map[string]interface{}, name string) string {
	t.Helper()
	stages, ok := job["stages"].(map[string]interface{})
	if !ok {
		t.Fatalf("job has no stages: %v", job)
	}
	stage, ok := stages[name].(map[string]interface{})
	if !ok {
		t.Fatalf("job has no %s stage: %v", name, stages)
	}
	s, _ := stage["status"].(string)
	return s
}

// waitForStatus polls GET /api/jobs/:id until the job reaches status.
func waitForStatus(t *testing.T, app *fiber.App, id, status string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := doAuthRequest(t, app, http.MethodGet, "/api/jobs/"+id, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		job := parseJSON(t, resp)
		if job["status"] == status {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not reach %q, last status %v", id, status, job["status"])
		}
		time.Sleep(10 * time.Millisecond)
	}
}
