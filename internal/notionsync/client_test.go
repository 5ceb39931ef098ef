package notionsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
)

// roundTripFunc answers requests in-process.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func reply(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNotionClient_DeletePageArchives(t *testing.T) {
	var method, path string
	var body map[string]interface{}
	client := NewNotionClient("secret", notionapi.WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			method, path = r.Method, r.URL.Path
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("request body: %v", err)
			}
			return reply(http.StatusOK, `{"object":"page","id":"p1"}`), nil
		}),
	}))

	if err := client.DeletePage(context.Background(), "p1"); err != nil {
		t.Fatalf("DeletePage() error = %v", err)
	}
	if method != http.MethodPatch || !strings.HasSuffix(path, "/pages/p1") {
		t.Errorf("request = %s %s, want PATCH .../pages/p1", method, path)
	}
	if body["archived"] != true {
		t.Errorf("body = %v, want archived=true", body)
	}
}

func TestNotionClient_ErrorsNameOperation(t *testing.T) {
	client := NewNotionClient("secret", notionapi.WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return reply(http.StatusNotFound, `{"object":"error","status":404,"code":"object_not_found","message":"no such object"}`), nil
		}),
	}))
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"update", func() error { _, err := client.UpdatePage(ctx, "p9", notionapi.Properties{}); return err }, "UpdatePage: page p9"},
		{"delete", func() error { return client.DeletePage(ctx, "p9") }, "DeletePage: page p9"},
		{"query", func() error {
			_, err := client.QueryDatabase(ctx, "db1", &notionapi.DatabaseQueryRequest{PageSize: PageSize})
			return err
		}, "QueryDatabase: database db1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want prefix %q", err, tt.want)
			}
			var apiErr *notionapi.Error
			if !errors.As(err, &apiErr) || apiErr.Code != "object_not_found" {
				t.Errorf("error %v does not unwrap to the API error", err)
			}
		})
	}
}
