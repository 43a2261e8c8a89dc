// File: internal/product/search.go
package product

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	es "ordena_backend/internal/platform/elasticsearch"
	"ordena_backend/internal/shared"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SearchIndex mirrors products into Elasticsearch. A nil *SearchIndex is
// valid: every method is a no-op and search falls back to SQL.
type SearchIndex struct {
	client *es.ESClientWrapper
	logger *zap.Logger
}

// NewSearchIndex returns nil when the client is nil (search disabled).
func NewSearchIndex(client *es.ESClientWrapper, logger *zap.Logger) *SearchIndex {
	if client == nil || client.Client == nil {
		return nil
	}
	return &SearchIndex{client: client, logger: logger.Named("product_index")}
}

// Enabled reports whether an Elasticsearch cluster backs the index.
func (s *SearchIndex) Enabled() bool { return s != nil }

func toDocument(p *Product) map[string]interface{} {
	doc := map[string]interface{}{
		"name":          p.Name,
		"internal_code": p.InternalCode,
		"brand_id":      p.BrandID.String(),
		"brand_name":    p.BrandName(),
		"category_id":   p.CategoryID.String(),
		"category_name": p.CategoryName(),
		"stock":         p.Stock,
		"active":        p.Active,
		"updated_at":    p.UpdatedAt,
	}
	if p.Description != nil {
		doc["description"] = *p.Description
	}
	if p.WarehouseID != nil {
		doc["warehouse_id"] = p.WarehouseID.String()
	}
	if p.BranchID != nil {
		doc["branch_id"] = p.BranchID.String()
	}
	return doc
}

// Index writes or replaces the product document.
func (s *SearchIndex) Index(ctx context.Context, p *Product) error {
	if s == nil {
		return nil
	}
	body, err := json.Marshal(toDocument(p))
	if err != nil {
		return fmt.Errorf("marshalling product document: %w", err)
	}
	res, err := esapi.IndexRequest{
		Index:      es.ProductsIndexName,
		DocumentID: p.ID.String(),
		Body:       bytes.NewReader(body),
	}.Do(ctx, s.client.Client)
	if err != nil {
		return fmt.Errorf("indexing product %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexing product %s: status %s", p.ID, res.Status())
	}
	return nil
}

// Search returns the ids of active products matching term, best match first.
func (s *SearchIndex) Search(ctx context.Context, term string, loc shared.LocationFilter, limit int) ([]uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"active": true}},
	}
	if loc.WarehouseID != nil {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"warehouse_id": loc.WarehouseID.String()}})
	}
	if loc.BranchID != nil {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"branch_id": loc.BranchID.String()}})
	}
	query := map[string]interface{}{
		"size":    limit,
		"_source": false,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filters,
				"should": []interface{}{
					map[string]interface{}{"multi_match": map[string]interface{}{
						"query":     term,
						"fields":    []string{"name^3", "brand_name", "category_name", "description"},
						"fuzziness": "AUTO",
					}},
					map[string]interface{}{"term": map[string]interface{}{"internal_code": map[string]interface{}{
						"value": strings.ToLower(term), "boost": 5,
					}}},
				},
				"minimum_should_match": 1,
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshalling product search: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{es.ProductsIndexName},
		Body:  bytes.NewReader(body),
	}.Do(ctx, s.client.Client)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("searching products: status %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding product search response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			s.logger.Warn("Skipping search hit with invalid id", zap.String("id", hit.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BulkIndex pushes products through the bulk API and returns how many were indexed.
func (s *SearchIndex) BulkIndex(ctx context.Context, products []Product) (int, error) {
	if s == nil || len(products) == 0 {
		return 0, nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: s.client.Client,
		Index:  es.ProductsIndexName,
	})
	if err != nil {
		return 0, fmt.Errorf("creating bulk indexer: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			// stop the workers; items already queued are still sent
			_ = bi.Close(context.Background())
		}
	}()
	for i := range products {
		body, err := json.Marshal(toDocument(&products[i]))
		if err != nil {
			return 0, fmt.Errorf("marshalling product document: %w", err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: products[i].ID.String(),
			Body:       bytes.NewReader(body),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				s.logger.Warn("Bulk index item failed",
					zap.String("id", item.DocumentID), zap.String("reason", res.Error.Reason), zap.Error(err))
			},
		})
		if err != nil {
			return 0, fmt.Errorf("queueing product %s: %w", products[i].ID, err)
		}
	}
	closed = true
	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("flushing bulk indexer: %w", err)
	}
	stats := bi.Stats()
	if stats.NumFailed > 0 {
		s.logger.Warn("Some products were not indexed", zap.Uint64("failed", stats.NumFailed))
	}
	return int(stats.NumIndexed), nil
}
