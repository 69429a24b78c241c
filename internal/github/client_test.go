package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Config{BaseURL: ts.URL, Owner: "acme", Repo: "widgets", Token: "tok"}, ts.Client())
}

func TestListDirectory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/repos/acme/widgets/contents/pm/features/inbox" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `[
			{"name":"TERP-FEAT-001","path":"pm/features/inbox/TERP-FEAT-001","type":"dir"},
			{"name":"README.md","path":"pm/features/inbox/README.md","type":"file"}
		]`)
	})

	entries, err := c.ListDirectory(context.Background(), "pm/features/inbox")
	if err != nil {
		t.Fatalf("ListDirectory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "TERP-FEAT-001" || entries[0].Type != "dir" {
		t.Errorf("first entry = %+v", entries[0])
	}
}

func TestListDirectoryMissingIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	entries, err := c.ListDirectory(context.Background(), "pm/features/nope")
	if err != nil {
		t.Fatalf("missing directory should not error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestListDirectoryServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusBadGateway)
	})
	if _, err := c.ListDirectory(context.Background(), "pm"); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestGetFileContentDecodesBase64(t *testing.T) {
	payload := `{"id":"TERP-FEAT-001","title":"Add export"}`
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"path":"pm/x/metadata.json","type":"file","encoding":"base64","sha":"abc123","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte(payload)))
	})

	file, err := c.GetFileContent(context.Background(), "pm/x/metadata.json")
	if err != nil {
		t.Fatalf("GetFileContent failed: %v", err)
	}
	if file == nil {
		t.Fatal("file is nil")
	}
	if file.Content != payload {
		t.Errorf("content = %q, want %q", file.Content, payload)
	}
	if file.SHA != "abc123" {
		t.Errorf("sha = %q", file.SHA)
	}
}

func TestGetFileContentMissingIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	file, err := c.GetFileContent(context.Background(), "pm/none.json")
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if file != nil {
		t.Errorf("file = %+v, want nil", file)
	}
}

func TestGetDevBrief(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/contents/pm/features/in-progress/TERP-FEAT-007/dev-brief.md" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprintf(w, `{"path":"x","type":"file","encoding":"base64","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte("# Dev brief\nBuild the exporter.")))
	})
	got, err := c.GetDevBrief(context.Background(), "pm", "TERP-FEAT-007")
	if err != nil {
		t.Fatalf("GetDevBrief failed: %v", err)
	}
	if got != "# Dev brief\nBuild the exporter." {
		t.Errorf("brief = %q", got)
	}
}

func TestGetDevBriefMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	_, err := c.GetDevBrief(context.Background(), "pm", "TERP-FEAT-404")
	if !errors.Is(err, ErrDevBriefNotFound) {
		t.Fatalf("err = %v, want ErrDevBriefNotFound", err)
	}
}

func TestGetChatContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/contents/pm/_system/chat-contexts/inbox-context.md" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprintf(w, `{"path":"x","type":"file","encoding":"base64","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte("You are the inbox agent.")))
	})
	got, err := c.GetChatContext(context.Background(), "pm", "inbox")
	if err != nil {
		t.Fatalf("GetChatContext failed: %v", err)
	}
	if got != "You are the inbox agent." {
		t.Errorf("context = %q", got)
	}
}
