package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-minutes-client/internal/apierror"
	"ai-minutes-client/internal/pkg/logger"
	"ai-minutes-client/internal/tokenstore"
)

// TokenSource yields the current bearer token, or "" when anonymous.
type TokenSource interface {
	Load() (string, error)
}

// Client is the transport adapter for the remote minutes service. It
// attaches the bearer token when one is persisted, and reports 401 through
// a single registered hook before returning a SessionExpired error.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     logger.ILogger
	tracer  trace.Tracer

	mu             sync.Mutex
	onUnauthorized func()
}

var _ TokenSource = (*tokenstore.Store)(nil)

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log logger.ILogger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log,
		tracer:  otel.Tracer("ai-minutes-client/transport"),
	}
}

// SetUnauthorizedHook registers the global 401 handler. Exactly one hook is
// supported; the session service owns it.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apierror.NewNetwork("failed to encode request", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return apierror.NewNetwork("failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, path, out)
}

// PostMultipart uploads a file plus form fields. Used only by the audio
// ingestion call, which can run for minutes on the server side.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, fileField, fileName string, file io.Reader, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return apierror.NewNetwork("failed to encode form field", err)
		}
	}

	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return apierror.NewNetwork("failed to create form file", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return apierror.NewNetwork("failed to read upload", err)
	}
	if err := writer.Close(); err != nil {
		return apierror.NewNetwork("failed to finalize upload body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return apierror.NewNetwork("failed to build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.send(req, path, out)
}

func (c *Client) send(req *http.Request, path string, out interface{}) error {
	requestId := uuid.New().String()
	req.Header.Set("X-Request-Id", requestId)

	if token, err := c.tokens.Load(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	ctx, span := c.tracer.Start(req.Context(), fmt.Sprintf("%s %s", req.Method, path))
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.route", path),
		attribute.String("request.id", requestId),
	)
	defer span.End()
	req = req.WithContext(ctx)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("transport", "request failed", map[string]interface{}{
			"method": req.Method, "path": path, "request_id": requestId, "error": err.Error(),
		})
		return apierror.NewNetwork("could not reach the server", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn("transport", "unauthorized response", map[string]interface{}{
			"method": req.Method, "path": path, "request_id": requestId,
		})
		c.fireUnauthorized()
		return apierror.NewSessionExpired()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromStatus(resp, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierror.NewNetwork("could not parse server response", err)
	}
	return nil
}

func (c *Client) fireUnauthorized() {
	c.mu.Lock()
	hook := c.onUnauthorized
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// errorFromStatus maps non-2xx responses onto the client error taxonomy.
// The server reports failures as {"error": "..."}.
func (c *Client) errorFromStatus(resp *http.Response, path string) error {
	var body struct {
		Error string `json:"error"`
	}
	message := ""
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		message = body.Error
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		if message == "" {
			message = path
		}
		return apierror.NewNotFound(message)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if message == "" {
			message = "request rejected"
		}
		return apierror.NewAuth(message)
	default:
		if message == "" {
			message = fmt.Sprintf("server error (%d)", resp.StatusCode)
		}
		return apierror.NewNetwork(message, nil)
	}
}
