// Package index adapts the managed search index (Elasticsearch) used for
// passage retrieval over document chunks.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
)

const defaultPassageCount = 5

type Client struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(addresses []string, index string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	return &Client{es: es, index: index}, nil
}

// EnsureIndex creates the passage index if it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("checking index: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := `{
		"mappings": {
			"properties": {
				"document_id": {"type": "keyword"},
				"chunk_number": {"type": "integer"},
				"title": {"type": "text"},
				"content": {"type": "text"}
			}
		}
	}`
	createRes, err := c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)))
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("creating index %s: %s", c.index, createRes.String())
	}
	return nil
}

// IndexChunks ingests one item per chunk, ids shaped <docID>_chunk_<i> so
// re-indexing the same document overwrites rather than duplicates.
func (c *Client) IndexChunks(ctx context.Context, docID, title string, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i, chunk := range chunks {
		chunkTitle := fmt.Sprintf("Document Part %d", i+1)
		if title != "" {
			chunkTitle = fmt.Sprintf("%s - Part %d", title, i+1)
		}

		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": c.index,
				"_id":    fmt.Sprintf("%s_chunk_%d", docID, i),
			},
		}
		doc := map[string]interface{}{
			"document_id":  docID,
			"chunk_number": i,
			"title":        chunkTitle,
			"content":      chunk,
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return err
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return err
		}
	}

	res, err := c.es.Bulk(bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithRefresh("true"))
	if err != nil {
		return fmt.Errorf("bulk indexing %s: %w", docID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk indexing %s: %s", docID, res.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int    `json:"status"`
			Error  any    `json:"error"`
			ID     string `json:"_id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decoding bulk response: %w", err)
	}
	if bulkResp.Errors {
		return fmt.Errorf("bulk indexing %s: some items failed", docID)
	}

	slog.InfoContext(ctx, "indexed document chunks", "document_id", docID, "chunks", len(chunks))
	return nil
}

// Passages queries the index for the best-matching excerpts of one document
// and joins them with blank lines. An empty result is not an error: it is the
// "not yet visible" signal the poll loop keys off.
func (c *Client) Passages(ctx context.Context, docID, query string) (string, error) {
	if query == "" {
		query = "What are the main points and key information in this document?"
	}

	body := map[string]interface{}{
		"size": defaultPassageCount,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"match": map[string]interface{}{"content": query},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"document_id": docID},
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf))
	if err != nil {
		return "", fmt.Errorf("querying passages for %s: %w", docID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", fmt.Errorf("querying passages for %s: %s", docID, res.String())
	}

	var searchResp struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Content string `json:"content"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return "", fmt.Errorf("decoding search response: %w", err)
	}

	var passages []string
	seen := make(map[string]bool)
	for _, hit := range searchResp.Hits.Hits {
		text := hit.Source.Content
		if text != "" && !seen[text] {
			passages = append(passages, text)
			seen[text] = true
		}
	}
	return strings.Join(passages, "\n\n"), nil
}

// DeleteDocument removes every chunk of a document, used when refreshed
// content is about to be re-indexed.
func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"document_id": docID},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	res, err := c.es.DeleteByQuery([]string{c.index}, &buf, c.es.DeleteByQuery.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", docID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("deleting chunks for %s: %s", docID, res.String())
	}
	io.Copy(io.Discard, res.Body) //nolint:errcheck
	return nil
}
