// File: internal/platform/elasticsearch/index.go
package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ProductsIndexName = "products"

// ProductsMapping is the index definition for product documents. Names get a
// folding analyzer so "Martillo" and "martíllo" match.
func ProductsMapping() (string, error) {
	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"analysis": map[string]interface{}{
				"analyzer": map[string]interface{}{
					"folded": map[string]interface{}{
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "asciifolding"},
					},
				},
			},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"name":          map[string]interface{}{"type": "text", "analyzer": "folded"},
				"description":   map[string]interface{}{"type": "text", "analyzer": "folded"},
				"internal_code": map[string]interface{}{"type": "keyword", "normalizer": "lowercase"},
				"brand_id":      map[string]interface{}{"type": "keyword"},
				"brand_name":    map[string]interface{}{"type": "text", "analyzer": "folded"},
				"category_id":   map[string]interface{}{"type": "keyword"},
				"category_name": map[string]interface{}{"type": "text", "analyzer": "folded"},
				"warehouse_id":  map[string]interface{}{"type": "keyword"},
				"branch_id":     map[string]interface{}{"type": "keyword"},
				"stock":         map[string]interface{}{"type": "double"},
				"active":        map[string]interface{}{"type": "boolean"},
				"updated_at":    map[string]interface{}{"type": "date"},
			},
		},
	}
	b, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling products mapping to JSON: %w", err)
	}
	return string(b), nil
}

// CreateProductsIndexIfNotExists creates the products index when it is missing.
func CreateProductsIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	if client == nil {
		return nil
	}
	log := logger.Named("elasticsearch_index_setup")

	res, err := esapi.IndicesExistsRequest{Index: []string{ProductsIndexName}}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error checking if products index exists: %w", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		log.Info("Products index already exists", zap.String("index_name", ProductsIndexName))
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("error checking if products index exists: status %s", res.Status())
	}

	mappingJSON, err := ProductsMapping()
	if err != nil {
		return err
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: ProductsIndexName,
		Body:  strings.NewReader(mappingJSON),
	}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error creating products index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		var errorBody map[string]interface{}
		_ = json.NewDecoder(createRes.Body).Decode(&errorBody)
		log.Error("Failed to create products index", zap.String("status", createRes.Status()), zap.Any("error_details", errorBody))
		return fmt.Errorf("failed to create products index: status %s", createRes.Status())
	}

	log.Info("Products index created", zap.String("index_name", ProductsIndexName))
	return nil
}
