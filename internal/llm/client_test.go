package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCompletionServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request: %v", err)
		}
		if captured != nil {
			if err := json.Unmarshal(body, captured); err != nil {
				t.Errorf("request body is not JSON: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		reply := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
}

func TestInvokeReturnsAssistantText(t *testing.T) {
	var captured map[string]any
	ts := newCompletionServer(t, "hello back", &captured)
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Model: "test-model", APIKey: "k"}, ts.Client())
	out, err := c.Invoke(context.Background(), []Message{{Role: "user", Content: "hello"}})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if out != "hello back" {
		t.Errorf("out = %q", out)
	}
	if captured["model"] != "test-model" {
		t.Errorf("model = %v", captured["model"])
	}
	if _, ok := captured["response_format"]; ok {
		t.Error("plain Invoke must not request a response format")
	}
}

func TestInvokeJSONRequestsJSONMode(t *testing.T) {
	var captured map[string]any
	ts := newCompletionServer(t, `{"score": 42, "label": "ok"}`, &captured)
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Model: "test-model", APIKey: "k"}, ts.Client())
	var out struct {
		Score int    `json:"score"`
		Label string `json:"label"`
	}
	if err := c.InvokeJSON(context.Background(), []Message{{Role: "user", Content: "score it"}}, &out); err != nil {
		t.Fatalf("InvokeJSON failed: %v", err)
	}
	if out.Score != 42 || out.Label != "ok" {
		t.Errorf("out = %+v", out)
	}
	rf, ok := captured["response_format"].(map[string]any)
	if !ok {
		t.Fatalf("response_format missing from request: %v", captured)
	}
	if rf["type"] != "json_object" {
		t.Errorf("response_format type = %v, want json_object", rf["type"])
	}
}

func TestInvokeJSONRejectsMalformedReply(t *testing.T) {
	ts := newCompletionServer(t, "sorry, I cannot", nil)
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Model: "m", APIKey: "k"}, ts.Client())
	var out map[string]any
	if err := c.InvokeJSON(context.Background(), []Message{{Role: "user", Content: "x"}}, &out); err == nil {
		t.Fatal("expected error for non-JSON reply")
	}
}

func TestInvokeRequiresMessages(t *testing.T) {
	ts := newCompletionServer(t, "unused", nil)
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Model: "m", APIKey: "k"}, ts.Client())
	if _, err := c.Invoke(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty message list")
	}
	if err := c.InvokeJSON(context.Background(), nil, &struct{}{}); err == nil {
		t.Fatal("expected error for empty message list")
	}
}

func TestInvokeSurfacesUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"message":"upstream down"}}`)
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, Model: "m", APIKey: "k"}, ts.Client())
	if _, err := c.Invoke(context.Background(), []Message{{Role: "user", Content: "x"}}); err == nil {
		t.Fatal("expected error from upstream failure")
	}
}
