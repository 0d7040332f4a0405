package rag

import (
	"context"
	"fmt"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"
)

// Document is one indexed chunk.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Result is a query hit.
type Result struct {
	Document   Document
	Similarity float32
}

// Retriever returns the documents most similar to a query.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]Result, error)
}

// Store is a chromem collection, persisted to PersistDir when set.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// OpenStore opens or creates the named collection.
func OpenStore(persistDir, collection string, embedder Embedder) (*Store, error) {
	if collection == "" {
		collection = "docs"
	}
	var (
		db  *chromem.DB
		err error
	)
	if persistDir != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(persistDir, "chromem"), false)
		if err != nil {
			return nil, fmt.Errorf("open vector store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
	coll, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collection, err)
	}
	return &Store{db: db, collection: coll}, nil
}

// Add embeds and stores documents; existing ids are replaced.
func (s *Store) Add(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Query returns at most topK results, best first. An empty store yields no results.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	count := s.collection.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}
	topK = min(topK, count)
	hits, err := s.collection.Query(ctx, text, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			Document:   Document{ID: hit.ID, Content: hit.Content, Metadata: hit.Metadata},
			Similarity: hit.Similarity,
		})
	}
	return results, nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	return s.collection.Count()
}
