package fossa_http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/davarch/fossa-gate/internal/domain"
)

const maxErrorBody = 512

type Client struct {
	baseUrl string
	token   string
	hc      *http.Client
}

func New(baseUrl string, token string, timeout time.Duration) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseUrl: trimSlash(baseUrl),
		token:   token,
		hc:      &http.Client{Transport: tr, Timeout: timeout},
	}
}

type buildDTO struct {
	ID       flexID     `json:"id"`
	Status   string     `json:"status"`
	Error    string     `json:"error"`
	Finished *time.Time `json:"finished"`
}

type revisionDTO struct {
	UnresolvedIssueCount *int `json:"unresolved_issue_count"`
}

type submitDTO struct {
	Locator string `json:"locator"`
}

// flexID accepts both numeric and string ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("build id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// SubmitBuild registers a build for the locator. It is never retried.
func (c *Client) SubmitBuild(ctx context.Context, req domain.BuildRequest) (domain.Build, error) {
	body, err := json.Marshal(submitDTO{Locator: req.Locator})
	if err != nil {
		return domain.Build{}, err
	}

	var dto buildDTO
	if err := c.do(ctx, http.MethodPost, c.baseUrl+"/api/revisions/build", body, &dto); err != nil {
		return domain.Build{}, err
	}
	return dto.toDomain(), nil
}

func (c *Client) GetBuild(ctx context.Context, id string) (domain.Build, error) {
	var dto buildDTO
	if err := c.do(ctx, http.MethodGet, c.baseUrl+"/api/builds/"+url.PathEscape(id), nil, &dto); err != nil {
		return domain.Build{}, err
	}

	b := dto.toDomain()
	if b.ID == "" {
		b.ID = id
	}
	return b, nil
}

func (c *Client) GetScanResult(ctx context.Context, locator string) (domain.ScanResult, error) {
	var dto revisionDTO
	if err := c.do(ctx, http.MethodGet, c.baseUrl+"/api/revisions/"+EncodeComponent(locator), nil, &dto); err != nil {
		return domain.ScanResult{}, err
	}
	return domain.ScanResult{UnresolvedIssueCount: dto.UnresolvedIssueCount}, nil
}

// do performs a single request and decodes the JSON response into out.
// Every failure is reported as a *domain.TransportError.
func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	fail := func(status int, err error) error {
		return &domain.TransportError{Op: method, URL: target, StatusCode: status, Err: err}
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fail(0, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(resp.StatusCode, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (d buildDTO) toDomain() domain.Build {
	return domain.Build{
		ID:         string(d.ID),
		Status:     mapStatus(d.Status),
		Error:      d.Error,
		FinishedAt: d.Finished,
	}
}

func mapStatus(s string) domain.BuildStatus {
	switch strings.ToUpper(s) {
	case "":
		return ""
	case "RUNNING":
		return domain.StatusRunning
	case "SUCCEEDED":
		return domain.StatusSucceeded
	case "FAILED":
		return domain.StatusFailed
	default:
		return domain.BuildStatus(s)
	}
}

// EncodeComponent escapes s the way JavaScript's encodeURIComponent does,
// so locators like "git+https://host/repo$sha" form a single path segment.
func EncodeComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if unreserved(ch) {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", ch)
	}
	return b.String()
}

func unreserved(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", ch) >= 0
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
