package background

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

var (
	ErrGenerationFailed = errors.New("image generation failed")
	ErrNoOutput         = errors.New("no image URL in prediction output")
	ErrTimeout          = errors.New("image generation timed out")

	errPending = errors.New("prediction still running")
)

// Input is the model input sent to the prediction API.
type Input struct {
	Prompt           string `json:"prompt"`
	AspectRatio      string `json:"aspect_ratio,omitempty"`
	OutputFormat     string `json:"output_format,omitempty"`
	OutputQuality    int    `json:"output_quality,omitempty"`
	SafetyTolerance  int    `json:"safety_tolerance,omitempty"`
	PromptUpsampling bool   `json:"prompt_upsampling"`
}

type ReplicateOptions struct {
	BaseURL      string
	Token        string
	Model        string
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// ReplicateClient creates predictions and polls them until they settle.
type ReplicateClient struct {
	baseURL      string
	token        string
	model        string
	pollInterval time.Duration
	timeout      time.Duration
	http         *http.Client
}

func NewReplicateClient(opts ReplicateOptions) *ReplicateClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.replicate.com/v1"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ReplicateClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        opts.Token,
		model:        opts.Model,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		http:         opts.HTTPClient,
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// Generate runs one prediction and returns the first output URL.
func (c *ReplicateClient) Generate(ctx context.Context, input Input) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.create(ctx, input)
	if err != nil {
		return "", c.wrapDeadline(ctx, err)
	}
	log := logrus.WithField("prediction", created.ID)
	log.Debug("prediction created")

	if url, done, err := settled(created); done {
		return url, err
	}

	var imageURL string
	poll := func() error {
		p, err := c.get(ctx, created.ID)
		if err != nil {
			return err
		}
		url, done, err := settled(p)
		if !done {
			return errPending
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		imageURL = url
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(c.pollInterval), ctx)
	if err := backoff.Retry(poll, b); err != nil {
		log.WithError(err).Warn("prediction did not succeed")
		return "", c.wrapDeadline(ctx, err)
	}

	log.Debug("prediction succeeded")
	return imageURL, nil
}

func (c *ReplicateClient) wrapDeadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return err
}

// settled reports whether a prediction reached a final state, and its result.
func settled(p prediction) (string, bool, error) {
	switch p.Status {
	case "succeeded":
		url, err := firstOutput(p.Output)
		return url, true, err
	case "failed", "canceled":
		msg := "unknown error"
		if p.Error != nil {
			msg = fmt.Sprint(p.Error)
		}
		return "", true, fmt.Errorf("%w: %s", ErrGenerationFailed, msg)
	default:
		return "", false, nil
	}
}

// firstOutput accepts either a single URL or a list of URLs.
func firstOutput(raw json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0] != "" {
		return list[0], nil
	}
	return "", ErrNoOutput
}

func (c *ReplicateClient) create(ctx context.Context, input Input) (prediction, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"input": input,
	})
	if err != nil {
		return prediction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	p, err := c.do(req)
	if err != nil {
		return prediction{}, fmt.Errorf("create prediction: %w", err)
	}
	if p.ID == "" {
		return prediction{}, fmt.Errorf("create prediction: invalid response from Replicate API")
	}
	return p, nil
}

func (c *ReplicateClient) get(ctx context.Context, id string) (prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return prediction{}, backoff.Permanent(err)
	}

	p, err := c.do(req)
	if err != nil {
		return prediction{}, fmt.Errorf("check prediction status: %w", err)
	}
	return p, nil
}

// do sends req and decodes a prediction. Non-2xx responses are permanent errors.
func (c *ReplicateClient) do(req *http.Request) (prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return prediction{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return prediction{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(data, &detail)
		if detail.Detail == "" {
			detail.Detail = http.StatusText(resp.StatusCode)
		}
		return prediction{}, backoff.Permanent(fmt.Errorf("Replicate API error: %d %s", resp.StatusCode, detail.Detail))
	}

	var p prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return prediction{}, backoff.Permanent(fmt.Errorf("decode prediction: %w", err))
	}
	return p, nil
}
