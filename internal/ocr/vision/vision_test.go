package vision

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/bindery/internal/testutil"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
	return string(b)
}

func newTestClient(t *testing.T, content string, status int) (*Client, *string) {
	t.Helper()
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			io.WriteString(w, chatReply(content))
		} else {
			io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "test", BaseURL: srv.URL, MaxRetries: 1, Logger: testutil.Logger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, &body
}

func TestRecognize(t *testing.T) {
	img := filepath.Join(t.TempDir(), "page.png")
	testutil.WritePNG(t, img, 8, 8)

	reply := "```json\n" + `{"regions":[{"text":"静夜思","confidence":0.9,"quad":[[1,2],[30,2],[30,12],[1,12]]}]}` + "\n```"
	c, body := newTestClient(t, reply, http.StatusOK)

	res, err := c.Recognize(t.Context(), img)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if res.Len() != 1 || res.Region(0).Text != "静夜思" || res.Region(0).Quad[2].X != 30 {
		t.Errorf("regions = %+v", res.Regions())
	}
	if !strings.Contains(*body, "data:image/png;base64,") {
		t.Error("request should embed the image as a data URL")
	}
}

func TestRecognize_SchemaViolation(t *testing.T) {
	img := filepath.Join(t.TempDir(), "page.png")
	testutil.WritePNG(t, img, 8, 8)

	for name, reply := range map[string]string{
		"missing quad":    `{"regions":[{"text":"x","confidence":0.5}]}`,
		"confidence > 1":  `{"regions":[{"text":"x","confidence":3,"quad":[[0,0],[1,0],[1,1],[0,1]]}]}`,
		"no json at all":  "I could not read this page.",
		"three point box": `{"regions":[{"text":"x","confidence":0.5,"quad":[[0,0],[1,0],[1,1]]}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, reply, http.StatusOK)
			if _, err := c.Recognize(t.Context(), img); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRecognize_APIError(t *testing.T) {
	img := filepath.Join(t.TempDir(), "page.png")
	testutil.WritePNG(t, img, 8, 8)
	c, _ := newTestClient(t, "", http.StatusUnauthorized)

	_, err := c.Recognize(t.Context(), img)
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("error = %v, want status 401", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                       `{"a":1}`,
		"Here you go: {\"a\":1} thanks": `{"a":1}`,
		"```\n{\"a\":1}\n```":           `{"a":1}`,
		"nothing":                       "",
	}
	for in, want := range tests {
		if got := extractJSON(in); got != want {
			t.Errorf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
