package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adibhanna/focusflow/internal/background"
	"github.com/adibhanna/focusflow/internal/metrics"
	"github.com/adibhanna/focusflow/internal/ratelimit"
)

type stubImages struct {
	url   string
	err   error
	calls int
}

func (s *stubImages) Generate(_ context.Context, _ background.Input) (string, error) {
	s.calls++
	return s.url, s.err
}

type testEnv struct {
	srv     *httptest.Server
	images  *stubImages
	metrics *metrics.Metrics
	mr      *miniredis.Miniredis
}

func newTestEnv(t *testing.T, limit int) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	images := &stubImages{url: "https://img/bg.webp"}
	m := metrics.New()
	svc := background.NewService(images, background.NewCache(client, time.Hour), m, background.DefaultDefaults())

	s, err := New(Options{
		Generator: svc,
		Limiter:   ratelimit.New(client, ratelimit.Config{MaxRequests: limit, Window: time.Minute}),
		Metrics:   m,
		Redis:     client,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, images: images, metrics: m, mr: mr}
}

func (e *testEnv) post(t *testing.T, body string, forwardedFor string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/generate-background", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestGenerateBackground_OK(t *testing.T) {
	e := newTestEnv(t, 10)

	resp, body := e.post(t, `{"prompt":"quiet library at night"}`, "203.0.113.7")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://img/bg.webp", body["imageUrl"])
	assert.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))

	resp, body = e.post(t, `{"prompt":"Quiet  library at NIGHT"}`, "203.0.113.7")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["cached"])
	assert.Equal(t, 1, e.images.calls)
}

func TestGenerateBackground_BadRequests(t *testing.T) {
	e := newTestEnv(t, 10)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed json", `{"prompt":`, "Invalid request body"},
		{"empty prompt", `{"prompt":"  "}`, "prompt cannot be empty"},
		{"too long", `{"prompt":"` + strings.Repeat("a", 501) + `"}`, "no more than 500 characters"},
		{"quality out of range", `{"prompt":"hills","outputQuality":500}`, "output quality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.post(t, tt.body, "198.51.100.1")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body["error"], tt.wantErr)
		})
	}
	assert.Equal(t, 0, e.images.calls)
}

func TestGenerateBackground_GeneratorFailure(t *testing.T) {
	e := newTestEnv(t, 10)
	e.images.err = errors.New("upstream exploded")

	resp, body := e.post(t, `{"prompt":"storm"}`, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to generate background image", body["error"])
}

func TestGenerateBackground_RateLimited(t *testing.T) {
	e := newTestEnv(t, 2)

	for i := 0; i < 2; i++ {
		resp, _ := e.post(t, `{"prompt":"forest"}`, "192.0.2.10, 10.0.0.1")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := e.post(t, `{"prompt":"forest"}`, "192.0.2.10")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	// A different client is unaffected.
	resp, _ = e.post(t, `{"prompt":"forest"}`, "192.0.2.99")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.RateLimitRejects))
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t, 10)

	resp, err := http.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	e.mr.SetError("LOADING")
	resp, err = http.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, 10)
	e.post(t, `{"prompt":"canyon"}`, "")

	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `focusflow_generation_requests_total{outcome="ok"} 1`)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8"}, "9.9.9.9:1234", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "4.4.4.4"}, "9.9.9.9:1234", "4.4.4.4"},
		{"remote host", nil, "9.9.9.9:1234", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
		{"nothing", nil, "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, err := New(Options{Generator: background.NewService(&stubImages{}, nil, nil, background.DefaultDefaults())})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
