package sharepoint

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	httpclient "github.com/natserract/splist/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedRequest struct {
	method string
	path   string
	auth   string
	body   []byte
}

// siteStub answers the form digest endpoint and records every request for
// the list items endpoint, replying with status and body.
type siteStub struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
}

func (s *siteStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/_api/contextinfo") {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"d": {"GetContextWebInformation": {"FormDigestValue": "0xDIGEST", "FormDigestTimeoutSeconds": 1800}},
			"FormDigestValue": "0xDIGEST",
			"FormDigestTimeoutSeconds": 1800
		}`)
		return
	}

	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, capturedRequest{
		method: r.Method,
		path:   r.URL.Path,
		auth:   r.Header.Get("Authorization"),
		body:   body,
	})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.status)
	_, _ = io.WriteString(w, s.body)
}

func (s *siteStub) itemRequests() []capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedRequest(nil), s.requests...)
}

func newStubbedClient(t *testing.T, stub *siteStub) *Client {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	transport := httpclient.NewTransport(1, zap.NewNop())
	return NewClientWithLogger(srv.URL+"/sites/ops", transport, 5*time.Second, zap.NewNop())
}

func TestList_AddItemCreatesRemoteItem(t *testing.T) {
	stub := &siteStub{
		status: http.StatusCreated,
		body:   `{"Id": 42, "ID": 42, "Title": "P-1"}`,
	}
	c := newStubbedClient(t, stub)

	item, err := c.Connect("tok-123").List("Processos").AddItem(context.Background(), map[string]string{
		"Title":        "P-1",
		"DATA_ENTRADA": "2024-03-05T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, item.ID)
	assert.Equal(t, "P-1", item.Title)

	reqs := stub.itemRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Contains(t, strings.ToLower(reqs[0].path), "/sites/ops/_api/web/lists/getbytitle('processos')/items")
	assert.Equal(t, "Bearer tok-123", reqs[0].auth)

	var sent map[string]string
	require.NoError(t, json.Unmarshal(reqs[0].body, &sent))
	assert.Equal(t, map[string]string{"Title": "P-1", "DATA_ENTRADA": "2024-03-05T00:00:00Z"}, sent)
}

func TestList_AddItemMapsRemoteStatus(t *testing.T) {
	stub := &siteStub{
		status: http.StatusNotFound,
		body:   `{"odata.error": {"code": "-2130575322, System.ArgumentException", "message": {"lang": "pt-BR", "value": "A lista não existe."}}}`,
	}
	c := newStubbedClient(t, stub)

	item, err := c.Connect("tok-123").List("Inexistente").AddItem(context.Background(), map[string]string{"Title": "x"})

	require.Error(t, err)
	assert.Nil(t, item)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Inexistente")
	assert.Len(t, stub.itemRequests(), 1)
}
