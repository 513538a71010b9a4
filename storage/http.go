package storage

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout = 5 * time.Minute
	DefaultRetries = 3
)

// ClientConfig tunes the HTTP client of the resty based repositories.
type ClientConfig struct {
	Timeout time.Duration
	Retries int
}

func newClient(cfg ClientConfig) *resty.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)
	client.AddRetryCondition(retryCondition)
	return client
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func statusError(resp *resty.Response, what string) error {
	return errors.Newf("%s: %s %s: %s", what, resp.Request.Method, resp.Request.URL, resp.Status())
}

// rawBody returns the unparsed body of a successful response.
func rawBody(resp *resty.Response, what string) (io.ReadCloser, error) {
	body := resp.RawBody()
	if resp.IsError() {
		if body != nil {
			body.Close()
		}
		return nil, statusError(resp, what)
	}
	return body, nil
}

// HTTP reads plain HTTP(S) servers. Checksums come from the Content-MD5 or
// X-Checksum-Sha256 headers of a HEAD request.
type HTTP struct {
	client *resty.Client
}

func NewHTTP(cfg ClientConfig) *HTTP {
	return &HTTP{client: newClient(cfg)}
}

func (h *HTTP) Metadata(ctx context.Context, rawURL string) (Metadata, error) {
	resp, err := h.client.R().SetContext(ctx).Head(rawURL)
	if err != nil {
		return Metadata{}, errors.Wrapf(err, "head %s", rawURL)
	}
	if resp.IsError() {
		return Metadata{}, statusError(resp, "metadata")
	}
	md := Metadata{Filename: fileName(rawURL)}
	if ext := path.Ext(md.Filename); ext != "" {
		md.FileExtension = ext[1:]
	}
	if v := resp.Header().Get("Content-MD5"); v != "" {
		sum, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return Metadata{}, errors.Wrapf(err, "Content-MD5 of %s", rawURL)
		}
		md.MD5 = hex.EncodeToString(sum)
	}
	if v := resp.Header().Get("X-Checksum-Sha256"); v != "" {
		md.SHA256 = strings.ToLower(v)
	}
	return md, nil
}

func (h *HTTP) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := h.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", rawURL)
	}
	return rawBody(resp, "download")
}

func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
