package whttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/sw33tLie/carbonscope/internal/utils"
	"golang.org/x/net/html"
)

const USER_AGENT = "carbonscope/1.0"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    []byte
}

type WHTTPRes struct {
	StatusCode     int
	ResponseLength int
	HTTPTitle      string
	BodyString     string
	Header         http.Header
	RequestID      string
}

// OK reports whether the response carries a 2xx status.
func (r *WHTTPRes) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

var defaultClient = NewClient()

func GetDefaultClient() *retryablehttp.Client {
	return defaultClient
}

// NewClient returns a retryablehttp client that never retries and never times out:
// every request is attempted exactly once and the response (or the transport error) is
// handed back untouched, whatever its status.
func NewClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 0
	c.HTTPClient.Timeout = 0
	c.CheckRetry = func(ctx context.Context, _ *http.Response, _ error) (bool, error) {
		return false, ctx.Err()
	}
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = leveledLogger{l: utils.Log}
	return c
}

// SetupProxy routes the default client through proxy. Certificate checks are disabled so
// an intercepting debug proxy can be used.
func SetupProxy(proxy string) error {
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	defaultClient.HTTPClient.Transport = &http.Transport{
		Proxy:           http.ProxyURL(proxyURL),
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return nil
}

func newRequest(ctx context.Context, wReq *WHTTPReq) (*retryablehttp.Request, string, error) {
	var body interface{}
	if wReq.Body != nil {
		body = wReq.Body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, wReq.Method, wReq.URL, body)
	if err != nil {
		return nil, "", err
	}

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}
	return req, requestID, nil
}

// SendHTTPRequest performs wReq once and buffers the whole response body.
// A non-2xx status is not an error at this layer.
func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	if client == nil {
		client = defaultClient
	}
	req, requestID, err := newRequest(ctx, wReq)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		utils.Log.WithFields(logrus.Fields{"request_id": requestID, "method": wReq.Method, "url": wReq.URL}).Debugf("request failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes := buildResponse(resp, string(bodyBytes), requestID)
	logResponse(wReq, wRes, time.Since(start))
	return wRes, nil
}

// StreamHTTPRequest performs wReq once and copies a 2xx body straight into w.
// Error bodies are buffered into the returned WHTTPRes instead.
func StreamHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client, w io.Writer) (*WHTTPRes, int64, error) {
	if client == nil {
		client = defaultClient
	}
	req, requestID, err := newRequest(ctx, wReq)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "*/*")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, 0, err
		}
		wRes := buildResponse(resp, string(bodyBytes), requestID)
		logResponse(wReq, wRes, time.Since(start))
		return wRes, 0, nil
	}

	n, err := io.Copy(w, resp.Body)
	wRes := buildResponse(resp, "", requestID)
	logResponse(wReq, wRes, time.Since(start))
	return wRes, n, err
}

func buildResponse(resp *http.Response, body, requestID string) *WHTTPRes {
	wRes := &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: body,
		Header:     resp.Header,
		RequestID:  requestID,
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		if title, ok := getHTMLTitle(body); ok {
			wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
		}
	}
	wRes.ResponseLength = utf8.RuneCountInString(body)
	return wRes
}

func logResponse(wReq *WHTTPReq, wRes *WHTTPRes, took time.Duration) {
	entry := utils.Log.WithFields(logrus.Fields{
		"request_id": wRes.RequestID,
		"method":     wReq.Method,
		"url":        wReq.URL,
		"status":     wRes.StatusCode,
		"took":       took.Round(time.Millisecond),
	})
	if wRes.HTTPTitle != "" {
		entry = entry.WithField("title", wRes.HTTPTitle)
	}
	entry.Debug("request done")
}

// MultipartFile builds a multipart/form-data body holding a single file part.
// The content is passed through byte for byte.
func MultipartFile(field, filename string, content io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(requestBody string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(requestBody))
	if err != nil {
		return "", false
	}

	return traverse(doc)
}
