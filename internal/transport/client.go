package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
)

// TokenSource resolves the bearer token for authenticated calls. The session
// store satisfies this.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Observer receives timing information for every completed upstream call.
type Observer func(method, endpoint string, status int, duration time.Duration)

// Sender is the outbound contract the effect engine depends on.
type Sender interface {
	Send(ctx context.Context, d Descriptor) (json.RawMessage, error)
}

// Client performs upstream HTTP requests described by a Descriptor. It does
// not retry, cache or deduplicate; every failure surfaces to the caller as a
// normalized *errors.Error.
type Client struct {
	http        *http.Client
	tokens      TokenSource
	staticToken string
	logger      *zap.Logger
	observe     Observer
}

// ClientConfig wires the transport client.
type ClientConfig struct {
	Timeout     time.Duration
	Tokens      TokenSource
	StaticToken string
	Logger      *zap.Logger
	Observer    Observer
}

// NewClient builds the transport client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		tokens:      cfg.Tokens,
		staticToken: cfg.StaticToken,
		logger:      cfg.Logger,
		observe:     cfg.Observer,
	}
}

// Send executes the described request and returns the decoded response body.
// The payload shape is caller-defined and not validated here.
func (c *Client) Send(ctx context.Context, d Descriptor) (json.RawMessage, error) {
	if d.Endpoint == "" {
		return nil, appErrors.Validation("request endpoint is required")
	}
	if d.Method == "" {
		return nil, appErrors.Validation("request method is required")
	}
	method := strings.ToUpper(d.Method)

	req, bodyKind, err := c.buildRequest(ctx, method, d)
	if err != nil {
		return nil, err
	}

	if err := c.applyAuth(ctx, req, d); err != nil {
		return nil, err
	}

	c.logger.Debug("upstream request",
		zap.String("method", method),
		zap.String("url", d.Endpoint),
		zap.Strings("headers", headerNames(req.Header)),
		zap.String("body_kind", bodyKind),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if c.observe != nil {
			c.observe(method, d.Endpoint, 0, time.Since(start))
		}
		c.logger.Warn("upstream unreachable", zap.String("url", d.Endpoint), zap.Error(err))
		return nil, appErrors.Transport(err.Error(), 0)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	if c.observe != nil {
		c.observe(method, d.Endpoint, resp.StatusCode, duration)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Transport(fmt.Sprintf("read upstream response: %v", err), resp.StatusCode)
	}

	c.logger.Debug("upstream response",
		zap.String("method", method),
		zap.String("url", d.Endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", duration),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, normalizeFailure(resp.StatusCode, raw)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(raw), nil
}

func (c *Client) buildRequest(ctx context.Context, method string, d Descriptor) (*http.Request, string, error) {
	endpoint := d.Endpoint

	if method == http.MethodGet || method == http.MethodHead {
		if d.Body != nil {
			qs, err := queryString(d.Body)
			if err != nil {
				return nil, "", err
			}
			if qs != "" {
				sep := "?"
				if strings.Contains(endpoint, "?") {
					sep = "&"
				}
				endpoint = endpoint + sep + qs
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return nil, "", appErrors.Validation(fmt.Sprintf("invalid request: %v", err))
		}
		req.Header.Set("Accept", "application/json")
		return req, "query", nil
	}

	if mp, ok := d.Body.(*MultipartPayload); ok && mp != nil {
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)
		for field, value := range mp.Fields {
			if err := writer.WriteField(field, value); err != nil {
				return nil, "", appErrors.Validation(fmt.Sprintf("write multipart field %s: %v", field, err))
			}
		}
		for _, file := range mp.Files {
			part, err := writer.CreateFormFile(file.FieldName, file.FileName)
			if err != nil {
				return nil, "", appErrors.Validation(fmt.Sprintf("attach file %s: %v", file.FileName, err))
			}
			if _, err := part.Write(file.Content); err != nil {
				return nil, "", appErrors.Validation(fmt.Sprintf("write file %s: %v", file.FileName, err))
			}
		}
		if err := writer.Close(); err != nil {
			return nil, "", appErrors.Validation(fmt.Sprintf("finalize multipart body: %v", err))
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, buf)
		if err != nil {
			return nil, "", appErrors.Validation(fmt.Sprintf("invalid request: %v", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, "multipart", nil
	}

	var body io.Reader
	bodyKind := "empty"
	if d.Body != nil {
		encoded, err := json.Marshal(d.Body)
		if err != nil {
			return nil, "", appErrors.Validation(fmt.Sprintf("encode request body: %v", err))
		}
		body = bytes.NewReader(encoded)
		bodyKind = "json"
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, "", appErrors.Validation(fmt.Sprintf("invalid request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	if bodyKind == "json" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, bodyKind, nil
}

func (c *Client) applyAuth(ctx context.Context, req *http.Request, d Descriptor) error {
	switch d.AuthMode {
	case AuthNone, "":
		return nil
	case AuthBasic:
		email, password, ok := credentialFields(d.Body)
		if !ok {
			return appErrors.Validation("missing basic auth credentials")
		}
		raw := base64.StdEncoding.EncodeToString([]byte(email + ":" + password))
		req.Header.Set("Authorization", "Basic "+raw)
		return nil
	case AuthBearer:
		token := ""
		if c.tokens != nil {
			resolved, err := c.tokens.Token(ctx)
			if err == nil {
				token = resolved
			}
		}
		if token == "" {
			token = c.staticToken
		}
		if token == "" {
			return appErrors.Validation("missing bearer token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	default:
		return appErrors.Validation(fmt.Sprintf("unknown auth mode %q", d.AuthMode))
	}
}

// normalizeFailure resolves the error message by preference: a structured
// message field, a structured error field, then the HTTP status text.
func normalizeFailure(status int, raw []byte) *appErrors.Error {
	var envelope struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Message != "" {
			return appErrors.Transport(envelope.Message, status)
		}
		if len(envelope.Error) > 0 {
			var asString string
			if err := json.Unmarshal(envelope.Error, &asString); err == nil && asString != "" {
				return appErrors.Transport(asString, status)
			}
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
				return appErrors.Transport(nested.Message, status)
			}
		}
	}
	return appErrors.Transport(http.StatusText(status), status)
}

// credentialFields extracts email/password for basic auth from an arbitrary
// JSON-serializable body.
func credentialFields(body interface{}) (string, string, bool) {
	if body == nil {
		return "", "", false
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", "", false
	}
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return "", "", false
	}
	if creds.Email == "" || creds.Password == "" {
		return "", "", false
	}
	return creds.Email, creds.Password, true
}

func queryString(body interface{}) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", appErrors.Validation(fmt.Sprintf("encode query parameters: %v", err))
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", appErrors.Validation("query parameters must be an object")
	}
	values := url.Values{}
	for key, value := range fields {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if v != "" {
				values.Set(key, v)
			}
		case float64:
			values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			values.Set(key, string(encoded))
		}
	}
	return values.Encode(), nil
}

func headerNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	return names
}
