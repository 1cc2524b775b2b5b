//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/supportbot/internal/cli"
	"github.com/cloo-solutions/supportbot/internal/config"
	"github.com/cloo-solutions/supportbot/internal/logging"
	"github.com/cloo-solutions/supportbot/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
)

// knowledgeHTML mimics a published spreadsheet: a header row of column
// letters in <th> cells and one question per row.
const knowledgeHTML = `<html><body><table>
<tr><th></th><th>A</th><th>B</th></tr>
<tr><th>1</th><td>Connect Swish</td><td>Step 1: open Settings.<br>Step 2: choose Swish.</td></tr>
<tr><th>2</th><td>Refunds</td><td>Open the receipt and choose refund.</td></tr>
<tr><th>3</th><td>Printer setup</td><td>Pair the printer over bluetooth.</td></tr>
</table></body></html>`

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	ServerURL    string
	ServerCloser func()
	Knowledge    *httptest.Server
	Completion   *FakeCompletion
	Config       *config.Config
	BinaryDir    string
	HTTPClient   *http.Client

	sourceDown atomic.Bool
	fetches    atomic.Int32
}

// FakeCompletion is an OpenAI-compatible chat completions endpoint that
// records every request it receives.
type FakeCompletion struct {
	*httptest.Server

	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	reply    string
	status   int
}

func newFakeCompletion(t *testing.T) *FakeCompletion {
	f := &FakeCompletion{reply: "**Answer:** Step 1: open Settings.", status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("fake completion: bad request body: %v", err)
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		reply, status := f.reply, f.status
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply}},
			},
		})
	}))
	return f
}

// Requests returns a copy of the recorded completion requests.
func (f *FakeCompletion) Requests() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), f.requests...)
}

// Fail makes subsequent completions return the given HTTP status.
func (f *FakeCompletion) Fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// SetupE2EEnv starts a knowledge source, a fake completion endpoint and the
// chat server wired exactly like `supportbotd serve`.
func SetupE2EEnv(t *testing.T, cacheTTL time.Duration) *E2ETestEnv {
	env := &E2ETestEnv{
		T:          t,
		Completion: newFakeCompletion(t),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	env.Knowledge = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.fetches.Add(1)
		if env.sourceDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(knowledgeHTML))
	}))

	env.Config = env.envConfig(t, cacheTTL)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	env.Config.Port = fmt.Sprint(port)

	env.ServerURL, env.ServerCloser = startServer(t, env.Config)
	return env
}

func (e *E2ETestEnv) envConfig(t *testing.T, cacheTTL time.Duration) *config.Config {
	t.Setenv("SUPPORTBOT_KNOWLEDGE_URL", e.Knowledge.URL)
	t.Setenv("SUPPORTBOT_COMPLETION_API_KEY", "gsk-e2e")
	t.Setenv("SUPPORTBOT_COMPLETION_BASE_URL", e.Completion.URL)
	t.Setenv("SUPPORTBOT_CACHE_TTL", cacheTTL.String())
	t.Setenv("SUPPORTBOT_FETCH_RETRIES", "0")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// SetSourceDown toggles the knowledge source between healthy and 503.
func (e *E2ETestEnv) SetSourceDown(down bool) {
	e.sourceDown.Store(down)
}

// Fetches returns how many times the knowledge source was requested.
func (e *E2ETestEnv) Fetches() int {
	return int(e.fetches.Load())
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	e.Knowledge.Close()
	e.Completion.Close()
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds supportbotd into a temporary directory
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "supportbot-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "supportbotd"), "./cmd/supportbotd")
	cmd.Dir = "../.."
	if output, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build supportbotd: %v\n%s", err, output)
	}
}

// RunSupportbot runs the built binary with the test environment's config.
func (e *E2ETestEnv) RunSupportbot(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "supportbotd"), args...)
	cmd.Env = append(os.Environ(),
		"SUPPORTBOT_KNOWLEDGE_URL="+e.Knowledge.URL,
		"SUPPORTBOT_COMPLETION_API_KEY=gsk-e2e",
		"SUPPORTBOT_COMPLETION_BASE_URL="+e.Completion.URL,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return stdout.String(), fmt.Errorf("%w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// ChatResponse is the decoded body of a /chat call.
type ChatResponse struct {
	StatusCode int
	Answer     string `json:"answer"`
	Error      string `json:"error"`
}

// Chat posts one question to /chat.
func (e *E2ETestEnv) Chat(body interface{}) (*ChatResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	return e.do(http.MethodPost, "/chat", bytes.NewReader(jsonData))
}

func (e *E2ETestEnv) do(method, path string, body io.Reader) (*ChatResponse, error) {
	req, err := http.NewRequest(method, e.ServerURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &ChatResponse{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(respBody, out); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return out, nil
}

func startServer(t *testing.T, cfg *config.Config) (string, func()) {
	pipeline, err := cli.NewPipeline(cfg, logging.Discard(), metrics.New(), nil)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: pipeline.Router(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := "http://localhost:" + cfg.Port
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
