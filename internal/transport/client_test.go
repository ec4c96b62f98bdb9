package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(context.Context) (string, error) { return s.token, s.err }

func TestSendGetSerializesBodyAsQuery(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{})
	_, err := c.Send(context.Background(), Descriptor{
		Endpoint: srv.URL + "/countries",
		Method:   http.MethodGet,
		Body:     map[string]interface{}{"active": true, "page": 2, "q": "fr", "skip": ""},
	})
	require.NoError(t, err)
	assert.Contains(t, gotURL, "active=true")
	assert.Contains(t, gotURL, "page=2")
	assert.Contains(t, gotURL, "q=fr")
	assert.NotContains(t, gotURL, "skip")
}

func TestSendPostJSONBody(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"data":{"_id":"1"}}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{})
	raw, err := c.Send(context.Background(), Descriptor{
		Endpoint: srv.URL + "/countries",
		Method:   http.MethodPost,
		Body:     map[string]string{"name": "France"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"France"}`, string(gotBody))
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"data":{"_id":"1"}}`, string(raw))
}

func TestSendMultipartBody(t *testing.T) {
	var gotName, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotName = r.FormValue("name")
		file, header, err := r.FormFile("flag")
		require.NoError(t, err)
		defer file.Close()
		gotFile = header.Filename
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{})
	_, err := c.Send(context.Background(), Descriptor{
		Endpoint: srv.URL + "/countries",
		Method:   http.MethodPost,
		Body: &MultipartPayload{
			Fields: map[string]string{"name": "France"},
			Files:  []FilePart{{FieldName: "flag", FileName: "fr.png", Content: []byte("png-bytes")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "France", gotName)
	assert.Equal(t, "fr.png", gotFile)
}

func TestBearerAuthPrefersTokenSource(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Tokens: staticTokens{token: "session-token"}, StaticToken: "static-token"})
	_, err := c.Send(context.Background(), Descriptor{
		Endpoint: srv.URL,
		Method:   http.MethodGet,
		AuthMode: AuthBearer,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer session-token", gotAuth)
}

func TestBearerAuthFallsBackToStaticToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Tokens: staticTokens{err: context.Canceled}, StaticToken: "static-token"})
	_, err := c.Send(context.Background(), Descriptor{
		Endpoint: srv.URL,
		Method:   http.MethodGet,
		AuthMode: AuthBearer,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer static-token", gotAuth)
}

func TestBearerAuthWithoutAnyToken(t *testing.T) {
	c := NewClient(ClientConfig{})
	_, err := c.Send(context.Background(), Descriptor{
		Endpoint: "http://localhost:1/never",
		Method:   http.MethodGet,
		AuthMode: AuthBearer,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBasicAuthEncodesCredentials(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{})
	_, err := c.Send(context.Background(), Descriptor{
		Endpoint: srv.URL + "/auth/login",
		Method:   http.MethodPost,
		AuthMode: AuthBasic,
		Body:     map[string]string{"email": "admin@example.com", "password": "secret"},
	})
	require.NoError(t, err)
	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin@example.com:secret"))
	assert.Equal(t, expected, gotAuth)
}

func TestBasicAuthWithoutCredentials(t *testing.T) {
	c := NewClient(ClientConfig{})
	_, err := c.Send(context.Background(), Descriptor{
		Endpoint: "http://localhost:1/never",
		Method:   http.MethodPost,
		AuthMode: AuthBasic,
		Body:     map[string]string{"email": "admin@example.com"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFailureMessagePreference(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusNotFound, `{"message":"candidate not found"}`, "candidate not found"},
		{"error string field", http.StatusBadRequest, `{"error":"bad code"}`, "bad code"},
		{"nested error message", http.StatusConflict, `{"error":{"message":"duplicate"}}`, "duplicate"},
		{"status text fallback", http.StatusForbidden, `<html>nope</html>`, "Forbidden"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(ClientConfig{})
			_, err := c.Send(context.Background(), Descriptor{Endpoint: srv.URL, Method: http.MethodGet})
			require.Error(t, err)

			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrTransport.Code, appErr.Code)
			assert.Equal(t, tc.status, appErr.Status)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}
}

func TestUnreachableUpstream(t *testing.T) {
	c := NewClient(ClientConfig{Timeout: 200 * time.Millisecond})
	_, err := c.Send(context.Background(), Descriptor{Endpoint: "http://localhost:1/down", Method: http.MethodGet})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTransport.Code, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestEmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{})
	raw, err := c.Send(context.Background(), Descriptor{Endpoint: srv.URL, Method: http.MethodDelete})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), raw)
}

func TestObserverReceivesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var observedStatus int
	c := NewClient(ClientConfig{Observer: func(method, endpoint string, status int, duration time.Duration) {
		observedStatus = status
	}})
	_, _ = c.Send(context.Background(), Descriptor{Endpoint: srv.URL, Method: http.MethodGet})
	assert.Equal(t, http.StatusTeapot, observedStatus)
}

func TestMissingEndpointOrMethod(t *testing.T) {
	c := NewClient(ClientConfig{})

	_, err := c.Send(context.Background(), Descriptor{Method: http.MethodGet})
	assert.Error(t, err)

	_, err = c.Send(context.Background(), Descriptor{Endpoint: "http://localhost:1"})
	assert.Error(t, err)
}
