package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncClock pins the report timestamp and the recently-updated window.
var syncClock = func() time.Time {
	return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
}

const galleryRoute = "/_apis/public/gallery/extensionquery"

// The gallery answers every query with all three fixture extensions; the
// adapter picks the one it asked for.
const galleryBody = `{
  "results": [{
    "extensions": [
      {
        "extensionName": "vscode-yaml",
        "publisher": {"publisherName": "redhat"},
        "versions": [{"version": "1.15.0", "lastUpdated": "2025-03-02T10:00:00Z", "properties": []}],
        "statistics": [{"statisticName": "install", "value": 30000}]
      },
      {
        "extensionName": "go",
        "publisher": {"publisherName": "golang"},
        "versions": [{"version": "0.42.0", "lastUpdated": "2025-06-20T10:00:00Z", "properties": []}],
        "statistics": [{"statisticName": "install", "value": 10000}]
      },
      {
        "extensionName": "python",
        "publisher": {"publisherName": "ms-python"},
        "versions": [
          {"version": "2025.7.0", "lastUpdated": "2025-06-28T10:00:00Z",
           "properties": [{"key": "Microsoft.VisualStudio.Code.PreRelease", "value": "true"}]},
          {"version": "2025.6.1", "lastUpdated": "2025-06-25T10:00:00Z", "properties": []}
        ],
        "statistics": [{"statisticName": "install", "value": 60000}]
      }
    ]
  }]
}`

const pythonReleasesBody = `[{
  "tag_name": "v2025.6.1",
  "assets": [
    {"name": "checksums.txt", "browser_download_url": "https://downloads.example/checksums.txt"},
    {"name": "ms-python-2025.6.1.vsix", "browser_download_url": "https://downloads.example/ms-python-2025.6.1.vsix"}
  ]
}]`

// mockRoutes maps request paths to canned JSON bodies. Anything else is a
// 404, which Open VSX uses for unknown extensions.
func mockRoutes() map[string]string {
	return map[string]string{
		galleryRoute:                              galleryBody,
		"/api/redhat/vscode-yaml":                 `{"namespace": "redhat", "name": "vscode-yaml", "version": "1.15.0", "timestamp": "2025-03-03T09:00:00Z"}`,
		"/api/golang/go":                          `{"namespace": "golang", "name": "go", "version": "0.41.0", "timestamp": "2025-05-01T09:00:00Z"}`,
		"/repos/golang/vscode-go/releases":        `[]`,
		"/repos/golang/vscode-go/tags":            `[{"name": "v0.41.0", "commit": {"sha": "aaa"}}, {"name": "v0.42.0", "commit": {"sha": "bbb"}}]`,
		"/repos/microsoft/vscode-python/releases": pythonReleasesBody,
	}
}

type mockRequest struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// mockServer is the in-process twin of the containerized mock.
type mockServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []mockRequest
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	routes := mockRoutes()
	mock := &mockServer{}
	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, mockRequest{Method: r.Method, Path: r.URL.Path})
		mock.mu.Unlock()
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(mock.Close)
	return mock
}

func (m *mockServer) Requests() []mockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockRequest(nil), m.requests...)
}

func mockRoutesJSON(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(mockRoutes())
	if err != nil {
		t.Fatalf("encode routes: %v", err)
	}
	return string(data)
}

func countPath(requests []mockRequest, prefix string) int {
	count := 0
	for _, request := range requests {
		if strings.HasPrefix(request.Path, prefix) {
			count++
		}
	}
	return count
}
