package edinet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEDINET serves documents.json and document packages from memory
type fakeEDINET struct {
	t *testing.T

	mu       sync.Mutex
	lists    map[string][]map[string]any // by date
	failing  map[string]int              // date -> status code
	archives map[string][]byte           // by docID

	listCalls     atomic.Int64
	downloadCalls atomic.Int64
	lastHeaders   http.Header
}

func newFakeEDINET(t *testing.T) (*fakeEDINET, *httptest.Server) {
	f := &fakeEDINET{
		t:        t,
		lists:    make(map[string][]map[string]any),
		failing:  make(map[string]int),
		archives: make(map[string][]byte),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeEDINET) addDocument(date string, doc DocumentMeta) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := map[string]any{
		"docID":          doc.DocID,
		"docTypeCode":    doc.DocTypeCode,
		"submitDateTime": doc.SubmitDateTime,
	}
	if doc.SecCode != "" {
		row["secCode"] = doc.SecCode
	}
	if doc.EdinetCode != "" {
		row["edinetCode"] = doc.EdinetCode
	}
	f.lists[date] = append(f.lists[date], row)
}

func (f *fakeEDINET) failDate(date string, status int) {
	f.mu.Lock()
	f.failing[date] = status
	f.mu.Unlock()
}

func (f *fakeEDINET) addArchive(docID string, data []byte) {
	f.mu.Lock()
	f.archives[docID] = data
	f.mu.Unlock()
}

func (f *fakeEDINET) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.lastHeaders = r.Header.Clone()
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/documents.json":
		f.listCalls.Add(1)
		if r.URL.Query().Get("type") != "2" {
			http.Error(w, "bad type", http.StatusBadRequest)
			return
		}
		date := r.URL.Query().Get("date")
		f.mu.Lock()
		status, failing := f.failing[date]
		rows := f.lists[date]
		f.mu.Unlock()
		if failing {
			http.Error(w, "unavailable", status)
			return
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": rows})

	case strings.HasPrefix(r.URL.Path, "/documents/"):
		f.downloadCalls.Add(1)
		if r.URL.Query().Get("type") != "1" {
			http.Error(w, "bad type", http.StatusBadRequest)
			return
		}
		docID := strings.TrimPrefix(r.URL.Path, "/documents/")
		f.mu.Lock()
		data, ok := f.archives[docID]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeEDINET) headers() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastHeaders
}

func (f *fakeEDINET) calls() int64 {
	return f.listCalls.Load() + f.downloadCalls.Load()
}

func newTestClient(srv *httptest.Server, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithBaseURL(srv.URL),
		WithSubscriptionKey("test-key"),
		WithUserAgent(BuildUserAgent("test@example.com")),
		WithRateLimit(0, 0),
	}
	return NewClient(append(base, opts...)...)
}

func TestClient_FetchDocumentList(t *testing.T) {
	fake, srv := newFakeEDINET(t)
	fake.addDocument("2025-06-18", DocumentMeta{DocID: "S100AAAA", DocTypeCode: "120", SubmitDateTime: "2025-06-18 15:00", SecCode: "72030"})

	client := newTestClient(srv)
	docs, err := client.FetchDocumentList(context.Background(), "2025-06-18")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "S100AAAA", docs[0].DocID)

	assert.Equal(t, "test-key", fake.headers().Get("Ocp-Apim-Subscription-Key"))
	assert.Equal(t, "go-edinet/"+VERSION+" (test@example.com)", fake.headers().Get("User-Agent"))
	assert.Equal(t, "application/json", fake.headers().Get("Accept"))
	assert.Equal(t, int64(1), client.Requests())
}

func TestClient_NoKeyHeaderWhenUnset(t *testing.T) {
	fake, srv := newFakeEDINET(t)
	client := newTestClient(srv, WithSubscriptionKey(""))

	_, err := client.FetchDocumentList(context.Background(), "2025-06-18")
	require.NoError(t, err)
	_, present := fake.headers()["Ocp-Apim-Subscription-Key"]
	assert.False(t, present)
}

func TestClient_StatusError(t *testing.T) {
	fake, srv := newFakeEDINET(t)
	fake.failDate("2025-06-18", http.StatusServiceUnavailable)
	client := newTestClient(srv)

	_, err := client.FetchDocumentList(context.Background(), "2025-06-18")
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)

	_, err = client.DownloadDocument(context.Background(), "MISSING")
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestClient_DownloadDocument(t *testing.T) {
	fake, srv := newFakeEDINET(t)
	fake.addArchive("S100AAAA", []byte("PK-bytes"))
	client := newTestClient(srv)

	data, err := client.DownloadDocument(context.Background(), "S100AAAA")
	require.NoError(t, err)
	assert.Equal(t, "PK-bytes", string(data))
	assert.Equal(t, "application/zip", fake.headers().Get("Accept"))

	_, err = client.DownloadDocument(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_RateLimit(t *testing.T) {
	_, srv := newFakeEDINET(t)
	client := newTestClient(srv, WithRateLimit(10, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.FetchDocumentList(context.Background(), "2025-06-18")
		require.NoError(t, err)
	}
	// 3 requests at 10/s with burst 1 wait at least two intervals
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestClient_CancelledContext(t *testing.T) {
	_, srv := newFakeEDINET(t)
	client := newTestClient(srv, WithRateLimit(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchDocumentList(ctx, "2025-06-18")
	assert.Error(t, err)
}

func TestGetSubscriptionKey(t *testing.T) {
	t.Setenv(SubscriptionKeyEnvVar, "")
	t.Setenv(LegacyAPIKeyEnvVar, "legacy")
	assert.Equal(t, "legacy", GetSubscriptionKey())

	t.Setenv(SubscriptionKeyEnvVar, "primary")
	assert.Equal(t, "primary", GetSubscriptionKey())
}

// TestClient_RealEDINET queries the live API (integration test)
func TestClient_RealEDINET(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv(SubscriptionKeyEnvVar) == "" && os.Getenv(LegacyAPIKeyEnvVar) == "" {
		t.Skip("EDINET subscription key not set")
	}

	client := NewClient()
	date := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	_, err := client.FetchDocumentList(context.Background(), date)
	require.NoError(t, err)
}
