package ocr_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facture-ocr/internal/model"
	"github.com/rezonia/facture-ocr/internal/ocr"
	"github.com/rezonia/facture-ocr/internal/server"
)

const testKey = "test-secret"

// captured is one request as seen by a test handler
type captured struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// recorder is an httptest server that answers every request with the same
// status and body, keeping what it received.
type recorder struct {
	mu       sync.Mutex
	requests []captured

	status int
	body   string
	header map[string]string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.requests = append(r.requests, captured{
		Method: req.Method,
		Path:   req.URL.Path,
		Header: req.Header.Clone(),
		Body:   body,
	})
	r.mu.Unlock()

	for k, v := range r.header {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json")
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, r.body)
}

func (r *recorder) Requests() []captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]captured(nil), r.requests...)
}

func newRecorder(t *testing.T, status int, body string) (*recorder, *ocr.Client) {
	t.Helper()
	rec := &recorder{status: status, body: body}
	ts := httptest.NewServer(rec)
	t.Cleanup(ts.Close)

	client, err := ocr.NewClient(testKey, ocr.WithBaseURL(ts.URL))
	require.NoError(t, err)
	return rec, client
}

func newStub(t *testing.T) (*server.Server, *ocr.Client) {
	t.Helper()
	stub := server.NewServer(&server.Config{ProxySecret: testKey})
	ts := httptest.NewServer(stub.Handler())
	t.Cleanup(ts.Close)

	client, err := ocr.NewClient(testKey, ocr.WithBaseURL(ts.URL+"/"))
	require.NoError(t, err)
	return stub, client
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := ocr.NewClient("key")
	require.NoError(t, err)

	cfg := client.Config()
	assert.Equal(t, ocr.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, ocr.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "key", cfg.APIKey)
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client, err := ocr.NewClient("key", ocr.WithBaseURL("https://api.example.com///"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", client.Config().BaseURL)
}

func TestNewClient_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		opts []ocr.ClientOption
	}{
		{"empty key", "", nil},
		{"blank key", "   ", nil},
		{"relative url", "key", []ocr.ClientOption{ocr.WithBaseURL("/v1")}},
		{"no scheme", "key", []ocr.ClientOption{ocr.WithBaseURL("api.example.com")}},
		{"negative timeout", "key", []ocr.ClientOption{ocr.WithTimeout(-time.Second)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ocr.NewClient(tt.key, tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestNewClient_DoesNotMutateHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: 5 * time.Second}
	_, err := ocr.NewClient("key", ocr.WithHTTPClient(hc), ocr.WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, hc.Timeout)
}

func TestClient_AuthHeaderAlwaysSent(t *testing.T) {
	rec, client := newRecorder(t, http.StatusOK, `{"status":"healthy"}`)

	_, err := client.Health(context.Background())
	require.NoError(t, err)

	reqs := rec.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, testKey, reqs[0].Header.Get(ocr.HeaderAuth))
	assert.Equal(t, ocr.DefaultUserAgent, reqs[0].Header.Get("User-Agent"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
}

func TestClient_NetworkFailureIsGeneric(t *testing.T) {
	failure := errors.New("connection refused")
	hc := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, failure
	})}

	client, err := ocr.NewClient(testKey, ocr.WithBaseURL("http://ocr.invalid"), ocr.WithHTTPClient(hc))
	require.NoError(t, err)

	_, err = client.ExtractBytes(context.Background(), []byte("x"), "a.png", nil)
	require.Error(t, err)

	ae, ok := model.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, model.KindGeneric, ae.Kind)
	assert.Equal(t, "connection refused", ae.Message)
	assert.Equal(t, 0, ae.StatusCode)
	assert.Nil(t, ae.Raw)
	assert.ErrorIs(t, err, failure)
}

func TestClient_TimeoutIsGeneric(t *testing.T) {
	stub := server.NewServer(&server.Config{ProxySecret: testKey})
	stub.Fail(ocr.PathQuota, server.Failure{Status: http.StatusOK, Body: `{}`, Delay: 2 * time.Second})

	ts := httptest.NewServer(stub.Handler())
	t.Cleanup(ts.Close)

	client, err := ocr.NewClient(testKey, ocr.WithBaseURL(ts.URL), ocr.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Quota(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	ae, ok := model.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, model.KindGeneric, ae.Kind)
	assert.Equal(t, 0, ae.StatusCode)
	assert.NotEmpty(t, ae.Message)
}

func TestClient_ContextCancel(t *testing.T) {
	stub, client := newStub(t)
	stub.Fail(ocr.PathLanguages, server.Failure{Status: http.StatusOK, Body: `{}`, Delay: 2 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Languages(ctx)
	require.Error(t, err)
	assert.True(t, model.IsGeneric(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	_, client := newStub(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Languages(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
