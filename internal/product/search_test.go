package product

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	es "ordena_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func newTestIndex(t *testing.T) (*SearchIndex, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"took":1,"errors":false,"items":[]}`))
	}))
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewSearchIndex(&es.ESClientWrapper{Client: client}, zap.NewNop()), srv.Close
}

func TestNilSearchIndexIsDisabled(t *testing.T) {
	var idx *SearchIndex
	assert.False(t, idx.Enabled())
	assert.Nil(t, NewSearchIndex(nil, zap.NewNop()))

	n, err := idx.BulkIndex(context.Background(), []Product{{}})
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, idx.Index(context.Background(), &Product{}))
}

func TestBulkIndexStopsWorkersWhenQueueingFails(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	idx, stop := newTestIndex(t)
	defer stop()

	products := make([]Product, 200)
	for i := range products {
		products[i].ID = uuid.New()
		products[i].Name = "Producto"
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.BulkIndex(ctx, products)
	assert.ErrorIs(t, err, context.Canceled)
}
