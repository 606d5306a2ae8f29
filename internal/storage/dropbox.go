package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf16"

	"golang.org/x/oauth2"
)

// Default Dropbox endpoints.
const (
	DropboxTokenURL   = "https://api.dropbox.com/oauth2/token"
	DropboxAPIURL     = "https://api.dropboxapi.com"
	DropboxContentURL = "https://content.dropboxapi.com"
)

// DropboxClient implements ObjectStorageClient over the Dropbox HTTP API.
// Objects live at "/{bucket}/{key}". Every operation first exchanges the
// long-lived refresh token for a fresh access token; nothing is cached.
type DropboxClient struct {
	oauth        *oauth2.Config
	refreshToken string
	httpClient   *http.Client
	apiURL       string
	contentURL   string
}

// DropboxOption is a functional option for configuring a DropboxClient.
type DropboxOption func(*DropboxClient)

// WithDropboxHTTPClient sets the HTTP client used for token exchange and
// API calls.
func WithDropboxHTTPClient(client *http.Client) DropboxOption {
	return func(c *DropboxClient) {
		c.httpClient = client
	}
}

// WithDropboxEndpoints overrides the token, API, and content base URLs.
func WithDropboxEndpoints(tokenURL, apiURL, contentURL string) DropboxOption {
	return func(c *DropboxClient) {
		c.oauth.Endpoint.TokenURL = tokenURL
		c.apiURL = strings.TrimSuffix(apiURL, "/")
		c.contentURL = strings.TrimSuffix(contentURL, "/")
	}
}

// NewDropboxClient creates a Dropbox adapter. No network call is made until
// the first operation.
func NewDropboxClient(cfg DropboxConfig, opts ...DropboxOption) *DropboxClient {
	c := &DropboxClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  DropboxTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		refreshToken: cfg.RefreshToken,
		httpClient:   http.DefaultClient,
		apiURL:       DropboxAPIURL,
		contentURL:   DropboxContentURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// accessToken performs the refresh-token grant. A new token source is built
// per call so no token outlives the operation that requested it.
func (c *DropboxClient) accessToken(ctx context.Context) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: c.refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("exchanging Dropbox refresh token: %w", err)
	}
	return tok, nil
}

// dropboxPath maps a location to the Dropbox path "/bucket/key".
func dropboxPath(loc ObjectLocation) string {
	return "/" + loc.Bucket + "/" + loc.Key
}

// GetObject downloads the file and returns the response body as the stream.
func (c *DropboxClient) GetObject(ctx context.Context, params GetObjectParams) (io.ReadCloser, error) {
	arg, err := headerJSON(map[string]string{"path": dropboxPath(params)})
	if err != nil {
		return nil, newError(KindRetrieval, BackendDropbox, "encoding Dropbox-API-Arg", err)
	}

	resp, err := c.call(ctx, KindRetrieval, c.contentURL+"/2/files/download", nil, map[string]string{
		"Dropbox-API-Arg": arg,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// PutObject uploads the body in overwrite mode. Dropbox derives the file
// type from its name, so ContentType is not sent.
func (c *DropboxClient) PutObject(ctx context.Context, params PutObjectParams) error {
	arg, err := headerJSON(map[string]string{
		"path": dropboxPath(params.Location()),
		"mode": "overwrite",
	})
	if err != nil {
		return newError(KindWrite, BackendDropbox, "encoding Dropbox-API-Arg", err)
	}

	body := params.Body
	if body == nil {
		body = bytes.NewReader(nil)
	}
	resp, err := c.call(ctx, KindWrite, c.contentURL+"/2/files/upload", body, map[string]string{
		"Content-Type":    "application/octet-stream",
		"Dropbox-API-Arg": arg,
	})
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// CopyObject asks Dropbox to copy from_path to to_path server-side.
func (c *DropboxClient) CopyObject(ctx context.Context, params CopyObjectParams) error {
	return c.callJSON(ctx, KindCopy, c.apiURL+"/2/files/copy_v2", map[string]string{
		"from_path": dropboxPath(params.Source),
		"to_path":   dropboxPath(params.Destination),
	})
}

// DeleteObject deletes the file at the location's path.
func (c *DropboxClient) DeleteObject(ctx context.Context, params DeleteObjectParams) error {
	return c.callJSON(ctx, KindDelete, c.apiURL+"/2/files/delete_v2", map[string]string{
		"path": dropboxPath(params),
	})
}

func (c *DropboxClient) callJSON(ctx context.Context, kind Kind, endpoint string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return newError(kind, BackendDropbox, "encoding Dropbox request", err)
	}
	resp, err := c.call(ctx, kind, endpoint, bytes.NewReader(data), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// call authenticates, POSTs to endpoint, and converts any non-2xx answer
// into an *Error of the given kind. On success the caller owns resp.Body.
func (c *DropboxClient) call(ctx context.Context, kind Kind, endpoint string, body io.Reader, headers map[string]string) (*http.Response, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, newError(kind, BackendDropbox, "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, newError(kind, BackendDropbox, "building Dropbox request", err)
	}
	tok.SetAuthHeader(req)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(kind, BackendDropbox, "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		e := newError(kind, BackendDropbox, dropboxErrorMessage(resp), nil)
		e.StatusCode = resp.StatusCode
		slog.Debug("Dropbox API error", "endpoint", endpoint, "status", resp.StatusCode, "error", e.Message)
		return nil, e
	}
	return resp, nil
}

// dropboxErrorMessage returns the response's error_summary when present,
// otherwise the HTTP status and whatever text the body holds.
func dropboxErrorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var apiErr struct {
		ErrorSummary string `json:"error_summary"`
	}
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.ErrorSummary != "" {
		return apiErr.ErrorSummary
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Sprintf("Dropbox API returned %s", resp.Status)
	}
	return fmt.Sprintf("Dropbox API returned %s: %s", resp.Status, text)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// headerJSON encodes v as JSON safe for an HTTP header: every character
// outside printable ASCII is written as a \u escape, as Dropbox requires
// for Dropbox-API-Arg.
func headerJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range string(data) {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
			continue
		}
		if r > 0xffff {
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.String(), nil
}

// Ensure DropboxClient implements ObjectStorageClient at compile time.
var _ ObjectStorageClient = (*DropboxClient)(nil)
