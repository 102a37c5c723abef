// Package fetch retrieves upstream playlist and guide documents over
// http(s) or local file, applying header injection, environment-variable
// substitution in URLs, and per-request timeouts.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/m3undle/lineup/internal/fsutil"
)

// ErrorKind distinguishes a transport-level failure from a parse-level one.
type ErrorKind string

const (
	FetchFailed ErrorKind = "fetch_failed"
	ParseFailed ErrorKind = "parse_failed"
)

// Error wraps a fetch-stage failure with its kind, so callers can decide
// whether to record a degraded status without inspecting message text.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fetchErr(err error) *Error { return &Error{Kind: FetchFailed, Err: err} }
func parseErr(err error) *Error { return &Error{Kind: ParseFailed, Err: err} }

// Request describes one fetch, independent of the catalog.Provider type so
// this package has no dependency on internal/catalog.
type Request struct {
	URL            string
	Headers        map[string]string
	UserAgent      string
	TimeoutSeconds int
}

// Result is the raw bytes retrieved for a playlist or guide, plus the byte
// count the caller records on its FetchRun.
type Result struct {
	Body  []byte
	Bytes int64
}

// EnvLookup resolves a ${VAR} placeholder. Tests inject a fake environment;
// production code uses os.LookupEnv.
type EnvLookup func(string) (string, bool)

// Fetcher retrieves playlist and guide documents.
type Fetcher struct {
	Client    *http.Client
	EnvLookup EnvLookup

	// AllowRoot, when non-empty, confines file:// fetches to this directory.
	// Leaving it empty allows any local path; it is the caller's decision to
	// set it when local-file providers are expected to be operator-curated.
	AllowRoot string
}

// New returns a Fetcher with a hardened default transport, grounded in the
// same dial/idle/header timeout shape used elsewhere in this codebase for
// outbound HTTP.
func New() *Fetcher {
	return &Fetcher{
		Client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          16,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       30 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		},
		EnvLookup: os.LookupEnv,
	}
}

// Fetch retrieves the bytes at req.URL, applying ${VAR} substitution, header
// injection, the https-port-80 normalization rule, and a per-request
// deadline derived from req.TimeoutSeconds.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	resolved, err := f.resolveURL(req.URL)
	if err != nil {
		return nil, fetchErr(err)
	}

	u, err := url.Parse(resolved)
	if err != nil {
		return nil, fetchErr(fmt.Errorf("parse url: %w", err))
	}

	if u.Scheme == "file" {
		return f.fetchFile(u)
	}
	return f.fetchHTTP(ctx, u.String(), req)
}

func (f *Fetcher) fetchFile(u *url.URL) (*Result, error) {
	path := u.Path
	if f.AllowRoot != "" {
		confined, err := fsutil.ConfineAbsPath(f.AllowRoot, path)
		if err != nil {
			return nil, fetchErr(fmt.Errorf("confine local file path: %w", err))
		}
		path = confined
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fetchErr(fmt.Errorf("read local file %q: %w", path, err))
	}
	return &Result{Body: body, Bytes: int64(len(body))}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string, req Request) (*Result, error) {
	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fetchErr(fmt.Errorf("build request: %w", err))
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return nil, fetchErr(fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fetchErr(fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fetchErr(fmt.Errorf("read body: %w", err))
	}
	return &Result{Body: body, Bytes: int64(len(body))}, nil
}

// resolveURL substitutes ${VAR} placeholders against f.EnvLookup and applies
// the https-port-80 normalization: if the scheme is https and the authority
// port is literally 80, the scheme is rewritten to http.
func (f *Fetcher) resolveURL(raw string) (string, error) {
	substituted, err := substituteEnv(raw, f.EnvLookup)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(substituted)
	if err != nil {
		return substituted, nil
	}
	if u.Scheme == "https" && u.Port() == "80" {
		u.Scheme = "http"
		return u.String(), nil
	}
	return substituted, nil
}

// substituteEnv replaces every ${VAR} occurrence in raw using lookup. A
// referenced variable that lookup cannot resolve is a fetch error.
func substituteEnv(raw string, lookup EnvLookup) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(raw) {
		start := strings.Index(raw[i:], "${")
		if start == -1 {
			b.WriteString(raw[i:])
			break
		}
		start += i
		b.WriteString(raw[i:start])

		end := strings.Index(raw[start+2:], "}")
		if end == -1 {
			return "", fmt.Errorf("unterminated ${} placeholder in url")
		}
		end += start + 2

		name := raw[start+2 : end]
		val, ok := lookup(name)
		if !ok {
			return "", fmt.Errorf("unresolved environment variable %q", name)
		}
		b.WriteString(val)
		i = end + 1
	}
	return b.String(), nil
}

// ErrUnparseable is a sentinel for bytes that were retrieved successfully
// but could not be parsed as the expected format. No code in this module
// returns it; parse failures are reported through WrapParseFailure.
var ErrUnparseable = errors.New("fetch: bytes not parseable")

// WrapParseFailure lets callers outside this package (the Snapshot
// Builder's BuildFull, which owns parsing) report a ParseFailed *Error
// without access to this package's unexported constructors.
func WrapParseFailure(err error) *Error {
	return parseErr(err)
}
