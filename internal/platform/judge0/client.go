// Package judge0 talks to a Judge0 compatible code execution service using its
// batch submission API.
package judge0

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bitscode/internal/common"
	"bitscode/internal/platform/logger"
	"bitscode/internal/platform/metrics"

	"go.uber.org/zap"
)

// Status ids reported by Judge0.
const (
	StatusInQueue     = 1
	StatusProcessing  = 2
	StatusAccepted    = 3
	StatusWrongAnswer = 4
	StatusTLE         = 5
	StatusCompileErr  = 6
)

const pollFields = "token,stdout,stderr,compile_output,message,status,memory,time"

// Submission is one execution item of a batch.
type Submission struct {
	SourceCode string
	LanguageID int
	Stdin      string
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is the decoded state of one submission.
type Result struct {
	Token         string  `json:"token"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        Status  `json:"status"`
	Memory        *int    `json:"memory"` // KB
	Time          *string `json:"time"`   // seconds
}

// Terminal reports whether the status will not change any more.
func (r Result) Terminal() bool {
	return r.Status.ID != StatusInQueue && r.Status.ID != StatusProcessing
}

type Config struct {
	BaseURL     string
	APIKey      string // sent as X-RapidAPI-Key when set
	APIHost     string // sent as X-RapidAPI-Host when set
	Base64      bool
	HTTPTimeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  logger.OrNop(log).Named("judge0"),
	}
}

type batchItem struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

type tokenItem struct {
	Token string          `json:"token"`
	Error json.RawMessage `json:"error,omitempty"`
}

// statusError is a non-2xx reply from the service.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("judge0 responded %d: %s", e.code, e.body)
}

// errMalformedReply marks a reply that parsed as JSON but carries fields that
// cannot be decoded. Asking again returns the same payload.
var errMalformedReply = errors.New("malformed judge0 reply")

// retryable reports whether polling may continue after err.
func retryable(err error) bool {
	if errors.Is(err, errMalformedReply) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

// SubmitBatch queues items and returns one token per item, in input order.
func (c *Client) SubmitBatch(ctx context.Context, items []Submission) ([]string, error) {
	if len(items) == 0 {
		return nil, common.Validationf("empty batch")
	}
	body := struct {
		Submissions []batchItem `json:"submissions"`
	}{Submissions: make([]batchItem, len(items))}
	for i, it := range items {
		body.Submissions[i] = batchItem{
			SourceCode: c.encode(it.SourceCode),
			LanguageID: it.LanguageID,
			Stdin:      c.encode(it.Stdin),
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}

	q := url.Values{}
	q.Set("base64_encoded", strconv.FormatBool(c.cfg.Base64))
	var tokens []tokenItem
	if err := c.do(ctx, http.MethodPost, "/submissions/batch?"+q.Encode(), payload, &tokens); err != nil {
		metrics.JudgeRequestsTotal.WithLabelValues("submit", "error").Inc()
		c.log.Warn("batch submission failed", zap.Int("size", len(items)), zap.Error(err))
		return nil, fmt.Errorf("submitting batch of %d: %w", len(items), common.ErrServiceUnavailable)
	}
	metrics.JudgeRequestsTotal.WithLabelValues("submit", "ok").Inc()

	if len(tokens) != len(items) {
		return nil, fmt.Errorf("judge0 returned %d tokens for %d submissions: %w", len(tokens), len(items), common.ErrServiceUnavailable)
	}
	out := make([]string, len(tokens))
	for i, t := range tokens {
		if t.Token == "" {
			c.log.Warn("submission rejected", zap.Int("index", i), zap.ByteString("detail", t.Error))
			return nil, fmt.Errorf("judge0 rejected submission %d: %w", i+1, common.ErrServiceUnavailable)
		}
		out[i] = t.Token
	}
	return out, nil
}

// PollBatch waits until every token reaches a terminal status and returns the
// results aligned with tokens. Transient failures are logged and retried until
// maxWait; client errors end the wait immediately.
func (c *Client) PollBatch(ctx context.Context, tokens []string, maxWait, interval time.Duration) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, common.Validationf("no tokens to poll")
	}
	if interval <= 0 {
		interval = time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	attempt := 0
	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("results not ready after %s: %w", maxWait, common.ErrEvaluationTimeout)
		case <-timer.C:
		}
		attempt++

		results, err := c.fetch(waitCtx, tokens)
		switch {
		case err == nil:
			metrics.JudgeRequestsTotal.WithLabelValues("poll", "ok").Inc()
			if done(results) {
				return results, nil
			}
			c.log.Debug("batch still running", zap.Int("attempt", attempt), zap.Int("size", len(tokens)))
		case waitCtx.Err() != nil:
			// Deadline or cancellation interrupted the request; reported above.
		case !retryable(err):
			metrics.JudgeRequestsTotal.WithLabelValues("poll", "rejected").Inc()
			c.log.Warn("poll rejected", zap.Int("attempt", attempt), zap.Error(err))
			return nil, fmt.Errorf("polling batch: %w", common.ErrServiceUnavailable)
		default:
			metrics.JudgeRequestsTotal.WithLabelValues("poll", "error").Inc()
			c.log.Warn("poll attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		timer.Reset(interval)
	}
}

// fetch returns the current state of tokens, in token order. Tokens missing
// from the reply are reported as still queued.
func (c *Client) fetch(ctx context.Context, tokens []string) ([]Result, error) {
	q := url.Values{}
	q.Set("tokens", strings.Join(tokens, ","))
	q.Set("base64_encoded", strconv.FormatBool(c.cfg.Base64))
	q.Set("fields", pollFields)

	var reply struct {
		Submissions []*Result `json:"submissions"`
	}
	if err := c.do(ctx, http.MethodGet, "/submissions/batch?"+q.Encode(), nil, &reply); err != nil {
		return nil, err
	}

	byToken := make(map[string]*Result, len(reply.Submissions))
	for _, r := range reply.Submissions {
		if r != nil {
			byToken[r.Token] = r
		}
	}
	results := make([]Result, len(tokens))
	for i, tok := range tokens {
		r, ok := byToken[tok]
		if !ok {
			results[i] = Result{Token: tok, Status: Status{ID: StatusInQueue, Description: "In Queue"}}
			continue
		}
		if err := c.decodeResult(r); err != nil {
			return nil, fmt.Errorf("decoding result for %s: %w: %w", tok, errMalformedReply, err)
		}
		results[i] = *r
	}
	return results, nil
}

func done(results []Result) bool {
	for _, r := range results {
		if !r.Terminal() {
			return false
		}
	}
	return true
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	}
	if c.cfg.APIHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.cfg.APIHost)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) encode(s string) string {
	if !c.cfg.Base64 {
		return s
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func (c *Client) decodeResult(r *Result) error {
	if !c.cfg.Base64 {
		return nil
	}
	for _, field := range []*string{r.Stdout, r.Stderr, r.CompileOutput, r.Message} {
		if field == nil {
			continue
		}
		decoded, err := decodeBase64(*field)
		if err != nil {
			return err
		}
		*field = decoded
	}
	return nil
}

// decodeBase64 accepts the line-wrapped base64 Judge0 emits.
func decodeBase64(s string) (string, error) {
	clean := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	b, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
