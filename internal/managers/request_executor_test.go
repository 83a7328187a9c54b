package managers

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessionAuth(allowedHosts []string) domain.SessionAccountAuth {
	return domain.SessionAccountAuth{
		AuthType:     domain.AuthTypeOAuth2,
		AllowedHosts: allowedHosts,
		Credentials: domain.SessionCredential{
			TokenType:   "Bearer",
			AccessToken: "access-1",
		},
	}
}

func TestRequestExecutor_Execute(t *testing.T) {
	var gotAuth string
	var gotContentType string
	var gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")

		buf := strings.Builder{}
		if r.Body != nil {
			_, _ = io.Copy(&buf, r.Body)
		}
		gotBody = buf.String()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)

	executor := NewRequestExecutor()
	auth := testSessionAuth([]string{"http://127.0.0.1"})

	outcome, err := executor.Execute(context.Background(), OutboundRequest{
		Method:      http.MethodPost,
		URL:         server.URL + "/v1/items",
		ContentType: ContentTypeJSON,
		Headers:     map[string]string{"X-Custom": "yes"},
		Body:        json.RawMessage(`{"title":"hello"}`),
	}, auth)
	require.NoError(t, err)

	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.Equal(t, ContentTypeJSON, gotContentType)
	assert.JSONEq(t, `{"title":"hello"}`, gotBody)

	assert.Equal(t, domain.StatusOK, outcome.RequestStatus)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, http.StatusOK, outcome.Result.Status)
	assert.JSONEq(t, `{"ok":true}`, outcome.Result.Body)
	assert.Equal(t, len(outcome.Result.Body), outcome.Result.BodySize)
}

func TestRequestExecutor_FormEncodedBody(t *testing.T) {
	var gotContentType string
	var gotForm string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := strings.Builder{}
		_, _ = io.Copy(&buf, r.Body)
		gotForm = buf.String()
	}))
	t.Cleanup(server.Close)

	executor := NewRequestExecutor()

	outcome, err := executor.Execute(context.Background(), OutboundRequest{
		Method:      http.MethodPost,
		URL:         server.URL + "/submit",
		ContentType: ContentTypeFormEncode,
		Body:        json.RawMessage(`{"field":"value"}`),
	}, testSessionAuth([]string{"http://127.0.0.1"}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOK, outcome.RequestStatus)
	assert.Equal(t, ContentTypeFormEncode, gotContentType)
	assert.Equal(t, "field=value", gotForm)
}

func TestRequestExecutor_ClientErrorPreservesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"missing"}`))
	}))
	t.Cleanup(server.Close)

	executor := NewRequestExecutor()

	outcome, err := executor.Execute(context.Background(), OutboundRequest{
		Method:      http.MethodGet,
		URL:         server.URL + "/nope",
		ContentType: ContentTypeCustom,
	}, testSessionAuth([]string{"http://127.0.0.1"}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusUnsaved, outcome.RequestStatus)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, http.StatusNotFound, outcome.Result.Status)
	assert.JSONEq(t, `{"error":"missing"}`, outcome.Result.Body)
}

func TestRequestExecutor_ServerErrorDropsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	t.Cleanup(server.Close)

	executor := NewRequestExecutor()

	outcome, err := executor.Execute(context.Background(), OutboundRequest{
		Method:      http.MethodGet,
		URL:         server.URL + "/boom",
		ContentType: ContentTypeCustom,
	}, testSessionAuth([]string{"http://127.0.0.1"}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, outcome.RequestStatus)
	assert.Equal(t, "Request failed", outcome.Message)
	assert.Nil(t, outcome.Result)
}

func TestRequestExecutor_HostNotAllowed(t *testing.T) {
	executor := NewRequestExecutor()

	_, err := executor.Execute(context.Background(), OutboundRequest{
		Method:      http.MethodGet,
		URL:         "https://evil.example.net/steal",
		ContentType: ContentTypeCustom,
	}, testSessionAuth([]string{"https://api.example.com"}))

	assert.ErrorIs(t, err, domain.ErrHostNotAllowed)
}

func TestRequestExecutor_UnsupportedAuthType(t *testing.T) {
	executor := NewRequestExecutor()

	auth := testSessionAuth([]string{"https://api.example.com"})
	auth.AuthType = "APIKey"

	_, err := executor.Execute(context.Background(), OutboundRequest{
		Method:      http.MethodGet,
		URL:         "https://api.example.com/v1",
		ContentType: ContentTypeCustom,
	}, auth)

	assert.ErrorIs(t, err, domain.ErrUnsupportedAuthType)
}

func TestRequestExecutor_Validation(t *testing.T) {
	executor := NewRequestExecutor()
	auth := testSessionAuth([]string{"https://api.example.com"})

	tests := []struct {
		name string
		req  OutboundRequest
	}{
		{
			name: "missing url",
			req:  OutboundRequest{Method: http.MethodGet, ContentType: ContentTypeCustom},
		},
		{
			name: "unsupported method",
			req:  OutboundRequest{Method: "TRACE", URL: "https://api.example.com/v1", ContentType: ContentTypeCustom},
		},
		{
			name: "unsupported content type",
			req:  OutboundRequest{Method: http.MethodGet, URL: "https://api.example.com/v1", ContentType: "text/yaml"},
		},
		{
			name: "custom content type on POST",
			req:  OutboundRequest{Method: http.MethodPost, URL: "https://api.example.com/v1", ContentType: ContentTypeCustom},
		},
		{
			name: "non key-value body for form POST",
			req: OutboundRequest{
				Method:      http.MethodPost,
				URL:         "https://api.example.com/v1",
				ContentType: ContentTypeFormEncode,
				Body:        json.RawMessage(`["not","a","map"]`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executor.Execute(context.Background(), tt.req, auth)
			assert.Error(t, err)
		})
	}
}

func TestRequestExecutor_TransportFailure(t *testing.T) {
	executor := NewRequestExecutor()
	auth := testSessionAuth([]string{"http://127.0.0.1"})

	t.Run("connection refused is a network error", func(t *testing.T) {
		outcome, err := executor.Execute(context.Background(), OutboundRequest{
			Method:      http.MethodGet,
			URL:         "http://127.0.0.1:1/unreachable",
			ContentType: ContentTypeCustom,
		}, auth)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusFailed, outcome.RequestStatus)
		assert.Equal(t, "Network error, request timeout!", outcome.Message)
		assert.Nil(t, outcome.Result)
	})

	t.Run("connection dropped after dial is a request failure", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		t.Cleanup(func() { _ = listener.Close() })

		go func() {
			for {
				conn, err := listener.Accept()
				if err != nil {
					return
				}
				_ = conn.Close()
			}
		}()

		outcome, err := executor.Execute(context.Background(), OutboundRequest{
			Method:      http.MethodGet,
			URL:         "http://" + listener.Addr().String() + "/dropped",
			ContentType: ContentTypeCustom,
		}, auth)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusFailed, outcome.RequestStatus)
		assert.Equal(t, "Request failed", outcome.Message)
		assert.Nil(t, outcome.Result)
	})
}
