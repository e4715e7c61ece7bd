package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go_giapha/internal/engine"
)

// Client talks to the genealogy backend. All lookups go through the
// engine's tiered cache, so re-runs over an already loaded family cost a
// handful of requests instead of one per member.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a backend client. token may be empty for anonymous
// backends; when set it is sent as a bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// createResult is the backend's enveloped mutation response. Some
// deployments return a bare GUID string instead; decodeCreatedID handles
// both.
type createResult struct {
	Succeeded bool            `json:"succeeded"`
	Value     string          `json:"value"`
	Errors    json.RawMessage `json:"errors"`
}

// FindFamilyByCode resolves a family code to its backend id.
// found=false without error means the family does not exist yet.
func (c *Client) FindFamilyByCode(ctx context.Context, code string) (id string, found bool, err error) {
	key := engine.CacheKey("family", code)
	if id, ok := engine.CacheGetID(ctx, key); ok {
		return id, true, nil
	}
	id, found, err = c.findID(ctx, fmt.Sprintf("%s/family/by-code/%s", c.baseURL, code))
	if err == nil && found {
		engine.CacheSetID(ctx, key, id)
	}
	return id, found, err
}

// FindMemberByCode resolves a member code to its backend id within a
// family. found=false without error means the member does not exist yet.
func (c *Client) FindMemberByCode(ctx context.Context, familyID, code string) (id string, found bool, err error) {
	key := engine.CacheKey("member", familyID, code)
	if id, ok := engine.CacheGetID(ctx, key); ok {
		return id, true, nil
	}
	id, found, err = c.findID(ctx, fmt.Sprintf("%s/member/by-family/%s/by-code/%s", c.baseURL, familyID, code))
	if err == nil && found {
		engine.CacheSetID(ctx, key, id)
	}
	return id, found, err
}

// findID performs a by-code lookup. The backend is inconsistent about
// missing entities: some routes answer 404, others 400 with a "not found"
// message. Both mean "absent", not "failed".
func (c *Client) findID(ctx context.Context, url string) (string, bool, error) {
	engine.IncrAPILookups()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return c.http.Do(req)
	})
	if err != nil {
		engine.IncrAPIErrors()
		return "", false, fmt.Errorf("lookup %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		engine.IncrAPIErrors()
		return "", false, fmt.Errorf("lookup %s: read body: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var doc struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &doc); err != nil || doc.ID == "" {
			// Some routes answer with the bare id.
			if id := trimGUID(body); id != "" {
				return id, true, nil
			}
			engine.IncrAPIErrors()
			return "", false, fmt.Errorf("lookup %s: unexpected body %q", url, truncate(body))
		}
		return doc.ID, true, nil
	case resp.StatusCode == http.StatusNotFound:
		return "", false, nil
	case resp.StatusCode == http.StatusBadRequest && bytes.Contains(bytes.ToLower(body), []byte("not found")):
		return "", false, nil
	default:
		engine.IncrAPIErrors()
		return "", false, fmt.Errorf("lookup %s: status %d: %s", url, resp.StatusCode, truncate(body))
	}
}

// CreateFamily creates a family and returns its backend id.
func (c *Client) CreateFamily(ctx context.Context, p FamilyPayload) (string, error) {
	id, err := c.create(ctx, c.baseURL+"/family", p)
	if err != nil {
		return "", fmt.Errorf("create family %s: %w", p.Code, err)
	}
	engine.CacheSetID(ctx, engine.CacheKey("family", p.Code), id)
	return id, nil
}

// CreateMember creates a member and returns its backend id.
func (c *Client) CreateMember(ctx context.Context, p MemberPayload) (string, error) {
	id, err := c.create(ctx, c.baseURL+"/member", p)
	if err != nil {
		return "", fmt.Errorf("create member %s: %w", p.Code, err)
	}
	engine.CacheSetID(ctx, engine.CacheKey("member", p.FamilyID, p.Code), id)
	return id, nil
}

func (c *Client) create(ctx context.Context, url string, payload any) (string, error) {
	engine.IncrAPICreates()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return c.http.Do(req)
	})
	if err != nil {
		engine.IncrAPIErrors()
		return "", err
	}
	defer resp.Body.Close()

	id, err := decodeCreatedID(resp)
	if err != nil {
		engine.IncrAPIErrors()
	}
	return id, err
}

// UpdateMemberRelationships applies a partial relationship patch.
func (c *Client) UpdateMemberRelationships(ctx context.Context, memberID string, patch RelationshipPatch) error {
	if patch.Empty() {
		return nil
	}
	engine.IncrAPIUpdates()

	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	url := fmt.Sprintf("%s/member/%s", c.baseURL, memberID)
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return c.http.Do(req)
	})
	if err != nil {
		engine.IncrAPIErrors()
		return fmt.Errorf("update member %s: %w", memberID, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		engine.IncrAPIErrors()
		return fmt.Errorf("update member %s: status %d: %s", memberID, resp.StatusCode, truncate(raw))
	}
	var result createResult
	if err := json.Unmarshal(raw, &result); err == nil && len(result.Errors) > 0 && !result.Succeeded {
		engine.IncrAPIErrors()
		return fmt.Errorf("update member %s: backend rejected: %s", memberID, truncate(raw))
	}
	slog.Debug("relationships updated", slog.String("member_id", memberID))
	return nil
}

// decodeCreatedID handles the backend's two creation response shapes:
// a bare (possibly quoted) GUID on 201, or an enveloped
// {succeeded, value} document.
func decodeCreatedID(resp *http.Response) (string, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body))
	}
	if id := trimGUID(body); id != "" {
		return id, nil
	}
	var result createResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unexpected body %q", truncate(body))
	}
	if !result.Succeeded || result.Value == "" {
		return "", fmt.Errorf("backend rejected: %s", truncate(body))
	}
	return result.Value, nil
}

// trimGUID returns the GUID in body if the body is exactly one, with or
// without surrounding JSON quotes.
func trimGUID(body []byte) string {
	s := strings.TrimSpace(string(body))
	s = strings.Trim(s, `"`)
	if isGUID(s) {
		return s
	}
	return ""
}

func isGUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, r := range s {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F') {
				return false
			}
		}
	}
	return true
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func truncate(b []byte) string {
	const max = 200
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
