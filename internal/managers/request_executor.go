package managers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"github.com/rs/zerolog/log"
)

const (
	ContentTypeCustom     = "custom"
	ContentTypeJSON       = "application/json"
	ContentTypeMultipart  = "multipart/form-data"
	ContentTypeFormEncode = "application/x-www-form-urlencoded"

	outboundConnectTimeout = 10 * time.Second
	outboundTotalTimeout   = 10 * time.Second

	maxResponseBodySize = 8 << 20
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

var supportedContentTypes = map[string]bool{
	ContentTypeCustom:     true,
	ContentTypeJSON:       true,
	ContentTypeMultipart:  true,
	ContentTypeFormEncode: true,
}

// OutboundRequest is a module-supplied request to an external API. Body is
// key-value pairs for the form content types, arbitrary JSON for
// application/json, and a raw string for "custom".
type OutboundRequest struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	ContentType string            `json:"content_type"`
	Body        json.RawMessage   `json:"body"`
}

// RequestOutcome classifies the result of an outbound call. Client errors
// (4xx) preserve the response body for caller inspection; server and
// transport failures return only a generic message.
type RequestOutcome struct {
	domain.Response
	Result *OutboundResponse `json:"response,omitempty"`
}

type OutboundResponse struct {
	Status   int                 `json:"status"`
	Headers  map[string][]string `json:"headers"`
	Body     string              `json:"body"`
	BodySize int                 `json:"body_size"`
}

// RequestExecutor sends authenticated requests to allow-listed external
// hosts on behalf of an authorized account.
type RequestExecutor struct {
	client *http.Client
}

func NewRequestExecutor() *RequestExecutor {
	return &RequestExecutor{
		client: &http.Client{
			Timeout: outboundTotalTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: outboundConnectTimeout,
				}).DialContext,
			},
		},
	}
}

// Execute validates, authorizes and performs the request. Validation
// failures are returned as errors; everything past validation is reported
// through the outcome classification.
func (e *RequestExecutor) Execute(ctx context.Context, req OutboundRequest, auth domain.SessionAccountAuth) (RequestOutcome, error) {
	if err := validateOutboundRequest(req); err != nil {
		return RequestOutcome{}, err
	}

	if !IsAllowedHost(req.URL, auth.AllowedHosts) {
		log.Warn().Str("url", req.URL).Msg("Outbound request URL rejected by host allow-list")
		return RequestOutcome{}, domain.ErrHostNotAllowed
	}

	if auth.AuthType != domain.AuthTypeOAuth2 {
		return RequestOutcome{}, domain.ErrUnsupportedAuthType
	}

	httpReq, err := e.buildRequest(ctx, req)
	if err != nil {
		return RequestOutcome{}, err
	}

	httpReq.Header.Set("Authorization", auth.Credentials.TokenType+" "+auth.Credentials.AccessToken)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return classifyTransportError(err), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return RequestOutcome{Response: domain.NewResponse(domain.StatusFailed, "Failed to read response")}, nil
	}

	outcome := RequestOutcome{
		Result: &OutboundResponse{
			Status:   resp.StatusCode,
			Headers:  resp.Header,
			Body:     string(body),
			BodySize: len(body),
		},
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		outcome.Response = domain.NewResponse(domain.StatusOK, "")
	case resp.StatusCode < 500:
		// 4xx: preserve the body so the module can inspect the failure.
		outcome.Response = domain.NewResponse(domain.StatusUnsaved, resp.Status)
	default:
		outcome.Result = nil
		outcome.Response = domain.NewResponse(domain.StatusFailed, "Request failed")
	}

	return outcome, nil
}

func (e *RequestExecutor) buildRequest(ctx context.Context, req OutboundRequest) (*http.Request, error) {
	var bodyReader io.Reader
	contentTypeHeader := ""

	switch req.ContentType {
	case ContentTypeJSON:
		bodyReader = bytes.NewReader(req.Body)
		contentTypeHeader = ContentTypeJSON

	case ContentTypeFormEncode:
		fields, err := decodeBodyFields(req.Body)
		if err != nil {
			return nil, err
		}
		values := url.Values{}
		for key, value := range fields {
			values.Set(key, value)
		}
		bodyReader = strings.NewReader(values.Encode())
		contentTypeHeader = ContentTypeFormEncode

	case ContentTypeMultipart:
		fields, err := decodeBodyFields(req.Body)
		if err != nil {
			return nil, err
		}
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)
		for key, value := range fields {
			if err := writer.WriteField(key, value); err != nil {
				return nil, fmt.Errorf("failed to write multipart field: %w", err)
			}
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
		}
		bodyReader = buf
		contentTypeHeader = writer.FormDataContentType()

	case ContentTypeCustom:
		var raw string
		if len(req.Body) > 0 {
			if err := json.Unmarshal(req.Body, &raw); err != nil {
				raw = string(req.Body)
			}
		}
		bodyReader = strings.NewReader(raw)
	}

	if req.Method == http.MethodGet {
		bodyReader = nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if contentTypeHeader != "" {
		httpReq.Header.Set("Content-Type", contentTypeHeader)
	}

	return httpReq, nil
}

func validateOutboundRequest(req OutboundRequest) error {
	if req.URL == "" {
		return errors.New("missing url field")
	}

	if !allowedMethods[req.Method] {
		return errors.New("unsupported request method")
	}

	if !supportedContentTypes[req.ContentType] {
		return errors.New("unsupported Content-Type")
	}

	if req.Method == http.MethodPost {
		if req.ContentType == ContentTypeCustom {
			return errors.New("Content-Type not supported for POST method")
		}
		if req.ContentType != ContentTypeJSON {
			if _, err := decodeBodyFields(req.Body); err != nil {
				return errors.New("body must be key-value pairs for POST method")
			}
		}
	}

	return nil
}

func decodeBodyFields(body json.RawMessage) (map[string]string, error) {
	fields := map[string]string{}
	if len(body) == 0 {
		return fields, nil
	}

	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("body is not key-value pairs: %w", err)
	}

	return fields, nil
}

// classifyTransportError separates connect and timeout failures, which the
// module may retry, from failures after the connection was established.
func classifyTransportError(err error) RequestOutcome {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return RequestOutcome{Response: domain.NewResponse(domain.StatusFailed, "Network error, request timeout!")}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return RequestOutcome{Response: domain.NewResponse(domain.StatusFailed, "Network error, request timeout!")}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return RequestOutcome{Response: domain.NewResponse(domain.StatusFailed, "Network error, request timeout!")}
	}

	return RequestOutcome{Response: domain.NewResponse(domain.StatusFailed, "Request failed")}
}
