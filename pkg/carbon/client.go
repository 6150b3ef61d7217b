package carbon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/carbonscope/pkg/whttp"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultOrg     = "kmutt"

	orgHeader = "X-Org-Slug"
)

var jsonContentType = whttp.WHTTPHeader{Name: "Content-Type", Value: "application/json"}

// TokenSource hands out the bearer token to attach, or "" when there is none.
// It is consulted before every request so a logout takes effect immediately.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type Config struct {
	BaseURL string
	Org     string
	// HTTPClient defaults to whttp.GetDefaultClient().
	HTTPClient *retryablehttp.Client
}

// Client talks to one tenant of the platform.
type Client struct {
	baseURL string
	org     string
	tokens  TokenSource
	http    *retryablehttp.Client
}

func NewClient(cfg Config, tokens TokenSource) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	org := cfg.Org
	if org == "" {
		org = DefaultOrg
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = whttp.GetDefaultClient()
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{baseURL: base, org: org, tokens: tokens, http: hc}
}

func (c *Client) BaseURL() string { return c.baseURL }
func (c *Client) Org() string     { return c.org }

// HasToken reports whether a credential would be attached to the next request.
func (c *Client) HasToken() bool { return c.tokens.Token() != "" }

func (c *Client) headers(extra ...whttp.WHTTPHeader) []whttp.WHTTPHeader {
	h := []whttp.WHTTPHeader{{Name: orgHeader, Value: c.org}}
	if tok := c.tokens.Token(); tok != "" {
		h = append(h, whttp.WHTTPHeader{Name: "Authorization", Value: "Bearer " + tok})
	}
	return append(h, extra...)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, extra ...whttp.WHTTPHeader) (*whttp.WHTTPRes, error) {
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  method,
		URL:     c.baseURL + path,
		Headers: c.headers(extra...),
		Body:    body,
	}, c.http)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, apiError(method, path, res)
	}
	return res, nil
}

func apiError(method, path string, res *whttp.WHTTPRes) *APIError {
	return &APIError{
		Method:     method,
		Path:       path,
		StatusCode: res.StatusCode,
		Body:       res.BodyString,
		Title:      res.HTTPTitle,
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	var extra []whttp.WHTTPHeader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		body = b
		extra = append(extra, jsonContentType)
	}

	res, err := c.send(ctx, method, path, body, extra...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.BodyString), out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	if in == nil {
		in = struct{}{}
	}
	return c.do(ctx, http.MethodPost, path, in, out)
}

// postFile uploads r as the multipart part "file". The bytes are not inspected.
func (c *Client) postFile(ctx context.Context, path, filename string, r io.Reader, out interface{}) error {
	body, contentType, err := whttp.MultipartFile("file", filename, r)
	if err != nil {
		return fmt.Errorf("preparing upload of %s: %w", filename, err)
	}
	res, err := c.send(ctx, http.MethodPost, path, body, whttp.WHTTPHeader{Name: "Content-Type", Value: contentType})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.BodyString), out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", http.MethodPost, path, err)
	}
	return nil
}

func (c *Client) stream(ctx context.Context, path string, w io.Writer) (*whttp.WHTTPRes, int64, error) {
	return whttp.StreamHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  http.MethodGet,
		URL:     c.baseURL + path,
		Headers: c.headers(),
	}, c.http, w)
}
