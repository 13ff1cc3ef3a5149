package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// KeywordIndex is a bleve full-text index over chunk content. It answers
// keyword queries alongside the vector search and is kept in step with the
// chunks table by the indexing service.
type KeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// keywordDoc is the document shape stored in bleve. The bleve document id is
// the chunk id.
type keywordDoc struct {
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
}

// validateKeywordIndex detects an index left half-written by a crash.
func validateKeywordIndex(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(path, "index_meta.json"))
	if err != nil {
		return fmt.Errorf("index_meta.json unreadable: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// OpenKeywordIndex opens or creates the index at path. An empty path creates
// an in-memory index. A corrupt on-disk index is removed and recreated empty;
// `docrag index --rebuild-keywords` refills it.
func OpenKeywordIndex(path string) (*KeywordIndex, error) {
	indexMapping := newKeywordMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if verr := validateKeywordIndex(path); verr != nil {
			slog.Warn("keyword_index_corrupted",
				slog.String("path", path),
				slog.String("error", verr.Error()))
			if rerr := os.RemoveAll(path); rerr != nil {
				return nil, derrors.New(derrors.ErrCodeCorruptIndex,
					"keyword index is corrupt and cannot be removed", rerr)
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, derrors.PersistenceError("failed to open keyword index", err)
	}

	return &KeywordIndex{index: idx, path: path}, nil
}

func newKeywordMapping() *mapping.IndexMappingImpl {
	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name

	docID := bleve.NewKeywordFieldMapping()
	docID.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", content)
	doc.AddFieldMappingsAt("document_id", docID)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

// IndexChunks adds or replaces the given chunks.
func (k *KeywordIndex) IndexChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return derrors.PersistenceError("keyword index is closed", nil)
	}

	batch := k.index.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ID, keywordDoc{DocumentID: c.DocumentID, Content: c.Content}); err != nil {
			return derrors.PersistenceError("failed to index chunk "+c.ID, err)
		}
	}
	if err := k.index.Batch(batch); err != nil {
		return derrors.PersistenceError("failed to write keyword batch", err)
	}
	return nil
}

// DeleteDocument removes every chunk of a document from the index.
func (k *KeywordIndex) DeleteDocument(ctx context.Context, documentID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return derrors.PersistenceError("keyword index is closed", nil)
	}

	q := bleve.NewTermQuery(documentID)
	q.SetField("document_id")

	for {
		req := bleve.NewSearchRequest(q)
		req.Size = 1000
		res, err := k.index.SearchInContext(ctx, req)
		if err != nil {
			return derrors.PersistenceError("failed to find keyword entries", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := k.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := k.index.Batch(batch); err != nil {
			return derrors.PersistenceError("failed to delete keyword entries", err)
		}
	}
}

// KeywordHit is a chunk id matched by a keyword query.
type KeywordHit struct {
	ChunkID    string
	DocumentID string
	Score      float64
}

// Search runs a match query over chunk content and returns up to limit hits
// by descending relevance.
func (k *KeywordIndex) Search(ctx context.Context, query string, limit int) ([]KeywordHit, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return nil, derrors.PersistenceError("keyword index is closed", nil)
	}

	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []KeywordHit{}, nil
	}

	mq := bleve.NewMatchQuery(query)
	mq.SetField("content")

	req := bleve.NewSearchRequest(mq)
	req.Size = limit
	req.Fields = []string{"document_id"}

	res, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeSearchFailed, "keyword search failed", err)
	}

	hits := make([]KeywordHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		docID, _ := h.Fields["document_id"].(string)
		hits = append(hits, KeywordHit{ChunkID: h.ID, DocumentID: docID, Score: h.Score})
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (k *KeywordIndex) Count() (uint64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return 0, derrors.PersistenceError("keyword index is closed", nil)
	}
	return k.index.DocCount()
}

// Close closes the index.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true
	return k.index.Close()
}
