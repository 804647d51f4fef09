package background

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReplicate serves a prediction that reports "processing" for the first
// pendingPolls status checks and then the given final body.
type fakeReplicate struct {
	pendingPolls int32
	final        string
	createStatus int

	polls   atomic.Int32
	created atomic.Value // map[string]any
}

func (f *fakeReplicate) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predictions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer r8_test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.created.Store(body)

		if f.createStatus != 0 {
			w.WriteHeader(f.createStatus)
			w.Write([]byte(`{"detail":"invalid token"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"pred-1","status":"starting"}`))
	})
	mux.HandleFunc("/predictions/pred-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		n := f.polls.Add(1)
		if n <= f.pendingPolls {
			w.Write([]byte(`{"id":"pred-1","status":"processing"}`))
			return
		}
		w.Write([]byte(f.final))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeReplicate, timeout time.Duration) *ReplicateClient {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	return NewReplicateClient(ReplicateOptions{
		BaseURL:      srv.URL,
		Token:        "r8_test",
		Model:        "black-forest-labs/flux-1.1-pro",
		PollInterval: 5 * time.Millisecond,
		Timeout:      timeout,
	})
}

func TestReplicateClient_PollsUntilSucceeded(t *testing.T) {
	f := &fakeReplicate{
		pendingPolls: 2,
		final:        `{"id":"pred-1","status":"succeeded","output":"https://replicate.delivery/out.webp"}`,
	}
	c := newTestClient(t, f, 5*time.Second)

	url, err := c.Generate(context.Background(), Input{Prompt: "dunes", AspectRatio: "16:9", PromptUpsampling: true})
	require.NoError(t, err)
	assert.Equal(t, "https://replicate.delivery/out.webp", url)
	assert.Equal(t, int32(3), f.polls.Load())

	body := f.created.Load().(map[string]any)
	assert.Equal(t, "black-forest-labs/flux-1.1-pro", body["model"])
	input := body["input"].(map[string]any)
	assert.Equal(t, "dunes", input["prompt"])
	assert.Equal(t, "16:9", input["aspect_ratio"])
	assert.Equal(t, true, input["prompt_upsampling"])
}

func TestReplicateClient_ListOutput(t *testing.T) {
	f := &fakeReplicate{
		final: `{"id":"pred-1","status":"succeeded","output":["https://a/1.png","https://a/2.png"]}`,
	}
	c := newTestClient(t, f, 5*time.Second)

	url, err := c.Generate(context.Background(), Input{Prompt: "dunes"})
	require.NoError(t, err)
	assert.Equal(t, "https://a/1.png", url)
}

func TestReplicateClient_Failed(t *testing.T) {
	f := &fakeReplicate{
		pendingPolls: 1,
		final:        `{"id":"pred-1","status":"failed","error":"NSFW content detected"}`,
	}
	c := newTestClient(t, f, 5*time.Second)

	_, err := c.Generate(context.Background(), Input{Prompt: "dunes"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorContains(t, err, "NSFW content detected")
	assert.Equal(t, int32(2), f.polls.Load())
}

func TestReplicateClient_SucceededWithoutOutput(t *testing.T) {
	f := &fakeReplicate{final: `{"id":"pred-1","status":"succeeded","output":[]}`}
	c := newTestClient(t, f, 5*time.Second)

	_, err := c.Generate(context.Background(), Input{Prompt: "dunes"})
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestReplicateClient_CreateError(t *testing.T) {
	f := &fakeReplicate{createStatus: http.StatusUnauthorized}
	c := newTestClient(t, f, 5*time.Second)

	_, err := c.Generate(context.Background(), Input{Prompt: "dunes"})
	assert.ErrorContains(t, err, "Replicate API error: 401 invalid token")
	assert.Equal(t, int32(0), f.polls.Load())
}

func TestReplicateClient_Timeout(t *testing.T) {
	f := &fakeReplicate{pendingPolls: 1 << 30}
	c := newTestClient(t, f, 50*time.Millisecond)

	_, err := c.Generate(context.Background(), Input{Prompt: "dunes"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestReplicateClient_CallerCancel(t *testing.T) {
	f := &fakeReplicate{pendingPolls: 1 << 30}
	c := newTestClient(t, f, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := c.Generate(ctx, Input{Prompt: "dunes"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}
