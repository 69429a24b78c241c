// Package github is a read-only client for the content store: the GitHub
// repository holding the product-management tree that items are synced from.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type Config struct {
	BaseURL string
	Owner   string
	Repo    string
	Token   string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

// ListDirectory lists one directory of the content store in the order the API
// returns it. A missing directory is an empty listing, not an error.
func (c *Client) ListDirectory(ctx context.Context, path string) ([]Entry, error) {
	var entries []Entry
	found, err := c.getContents(ctx, path, &entries)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Entry{}, nil
	}
	return entries, nil
}

// GetFileContent fetches and decodes one file. A missing file returns
// (nil, nil); any other failure is an error.
func (c *Client) GetFileContent(ctx context.Context, path string) (*File, error) {
	var raw struct {
		Path     string `json:"path"`
		Type     string `json:"type"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
		SHA      string `json:"sha"`
	}
	found, err := c.getContents(ctx, path, &raw)
	if err != nil {
		return nil, err
	}
	if !found || raw.Type != "file" {
		return nil, nil
	}
	content := raw.Content
	if raw.Encoding == "base64" || raw.Encoding == "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		content = string(decoded)
	}
	return &File{Path: raw.Path, Content: content, SHA: raw.SHA}, nil
}

// GetChatContext loads the per-agent system context markdown, or "" when the
// repository does not carry one.
func (c *Client) GetChatContext(ctx context.Context, basePath, agentType string) (string, error) {
	path := fmt.Sprintf("%s/_system/chat-contexts/%s-context.md", basePath, agentType)
	file, err := c.GetFileContent(ctx, path)
	if err != nil {
		return "", err
	}
	if file == nil {
		return "", nil
	}
	return file.Content, nil
}

// ErrDevBriefNotFound reports an in-progress feature directory without a
// dev-brief.md, which code generation requires.
var ErrDevBriefNotFound = errors.New("dev brief not found")

// GetDevBrief loads the implementation brief for an in-progress feature.
func (c *Client) GetDevBrief(ctx context.Context, basePath, featureID string) (string, error) {
	path := fmt.Sprintf("%s/features/in-progress/%s/dev-brief.md", basePath, featureID)
	file, err := c.GetFileContent(ctx, path)
	if err != nil {
		return "", err
	}
	if file == nil {
		return "", fmt.Errorf("%w: %s", ErrDevBriefNotFound, path)
	}
	return file.Content, nil
}

// getContents issues one contents-API call. Returns found=false on 404.
func (c *Client) getContents(ctx context.Context, path string, out any) (bool, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repo), escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return false, fmt.Errorf("github contents %s: status %d: %s", path, res.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return false, fmt.Errorf("github contents %s: %w", path, err)
	}
	return true, nil
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
