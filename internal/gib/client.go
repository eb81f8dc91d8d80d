// Package gib is the client for the GİB ÖKC ESU registry API.
//
// Client posts JSON payloads with Basic authentication and parses the
// registry's {durum, sonuc} answer. Service layers the ESU operations on top
// of a Client: it builds each payload from domain records, validates it and
// only then submits it.
package gib

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/electroop-engineering/gib-esu/internal/logging"
)

// Base URLs of the registry.
const (
	ProdBaseURL = "https://okc.gib.gov.tr/api/v1/okc/okcesu"
	TestBaseURL = "https://okctest.gib.gov.tr/api/v1/okc/okcesu"
)

// Endpoint is the path of one registry operation.
type Endpoint string

const (
	EndpointRegister  Endpoint = "/yeniEsuKayit"
	EndpointOwnership Endpoint = "/esuMukellefDurum"
	EndpointUpdate    Endpoint = "/esuGuncelleme"
	EndpointClose     Endpoint = "/esuKapatma"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 1 << 20

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Observer is notified after every Submit. Outcome is the response durum,
// or "error" for transport failures.
type Observer interface {
	ObserveCall(endpoint Endpoint, outcome string, elapsed time.Duration)
}

// Credentials authenticate the company against the registry.
type Credentials struct {
	CompanyCode string
	Secret      string
}

// Client submits payloads to one registry deployment.
type Client struct {
	baseURL     string
	auth        string
	http        Doer
	observer    Observer
	logRequests bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithObserver registers a call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithRequestLogging logs every outgoing payload at debug level.
func WithRequestLogging(enabled bool) Option {
	return func(c *Client) { c.logRequests = enabled }
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, creds Credentials, opts ...Option) *Client {
	token := base64.StdEncoding.EncodeToString([]byte(creds.CompanyCode + ":" + creds.Secret))
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    "Basic " + token,
		http:    NewHTTPClient(30*time.Second, true),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient returns an HTTP client with the given timeout. When
// verifyTLS is false, certificate verification is skipped, matching the
// registry's SSL_DOGRULAMA=0 setting for its test environment.
func NewHTTPClient(timeout time.Duration, verifyTLS bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !verifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// BaseURL returns the registry root this client posts to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit posts payload to endpoint and parses the registry's answer.
//
// A well-formed answer is returned even when its durum is "basarisiz"; the
// caller decides what a rejection means. Network failures, non-2xx
// statuses and bodies that do not match the response schema are returned as
// *TransportError.
func (c *Client) Submit(ctx context.Context, payload any, endpoint Endpoint) (*Response, error) {
	start := time.Now()
	resp, err := c.submit(ctx, payload, endpoint)

	outcome := "error"
	if err == nil {
		outcome = string(resp.Status)
	}
	if c.observer != nil {
		c.observer.ObserveCall(endpoint, outcome, time.Since(start))
	}
	return resp, err
}

func (c *Client) submit(ctx context.Context, payload any, endpoint Endpoint) (*Response, error) {
	logger := logging.FromContext(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gib %s: encode payload: %w", endpoint, err)
	}
	if c.logRequests {
		logger.Debug("gib request", "endpoint", string(endpoint), "payload", string(body))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+string(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gib %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.auth)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Code: CodeRequestFailed, Endpoint: endpoint, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Code: CodeRequestFailed, Endpoint: endpoint, StatusCode: httpResp.StatusCode, Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &TransportError{
			Code:       CodeHTTPStatus,
			Endpoint:   endpoint,
			StatusCode: httpResp.StatusCode,
			Body:       truncate(string(raw), 512),
		}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &TransportError{
			Code:       CodeMalformedBody,
			Endpoint:   endpoint,
			StatusCode: httpResp.StatusCode,
			Body:       truncate(string(raw), 512),
			Err:        err,
		}
	}
	if err := out.validate(); err != nil {
		return nil, &TransportError{
			Code:       CodeInvalidBody,
			Endpoint:   endpoint,
			StatusCode: httpResp.StatusCode,
			Body:       truncate(string(raw), 512),
			Err:        err,
		}
	}

	logger.Debug("gib response",
		"endpoint", string(endpoint),
		"durum", string(out.Status),
		"kod", out.Results[0].Code,
	)
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
