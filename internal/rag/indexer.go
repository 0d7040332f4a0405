package rag

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"promptopt/internal/logging"
)

// SourceKey is the metadata key holding a chunk's relative file path.
const SourceKey = "source"

// DocumentStore accepts indexed chunks.
type DocumentStore interface {
	Add(ctx context.Context, docs []Document) error
}

// IndexStats summarizes an index run.
type IndexStats struct {
	Files  int
	Chunks int
}

// Indexer walks a docs directory and stores chunked files.
type Indexer struct {
	store      DocumentStore
	extensions []string
	chunkSize  int
	workers    int
	logger     logging.Logger
}

// NewIndexer builds an indexer for files with the given extensions.
func NewIndexer(store DocumentStore, extensions []string, chunkSize int, logger logging.Logger) *Indexer {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ext != "" {
			normalized = append(normalized, ext)
		}
	}
	return &Indexer{
		store:      store,
		extensions: normalized,
		chunkSize:  chunkSize,
		workers:    4,
		logger:     logging.OrNop(logger),
	}
}

// Index stores every matching file under root. Chunk ids are "<relpath>#<n>".
func (idx *Indexer) Index(ctx context.Context, root string) (IndexStats, error) {
	files, err := idx.collect(root)
	if err != nil {
		return IndexStats{}, err
	}

	var (
		mu    sync.Mutex
		stats = IndexStats{Files: len(files)}
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(idx.workers)
	for _, rel := range files {
		group.Go(func() error {
			count, err := idx.indexFile(groupCtx, root, rel)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			stats.Chunks += count
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return stats, err
	}
	idx.logger.Info("indexed documents", "files", stats.Files, "chunks", stats.Chunks)
	return stats, nil
}

func (idx *Indexer) collect(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat docs dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("docs dir %q is not a directory", root)
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !slices.Contains(idx.extensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk docs dir: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (idx *Indexer) indexFile(ctx context.Context, root, rel string) (int, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rel, err)
	}
	chunks := ChunkText(string(data), idx.chunkSize)
	docs := make([]Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s#%d", rel, i),
			Content:  chunk,
			Metadata: map[string]string{SourceKey: rel},
		})
	}
	if err := idx.store.Add(ctx, docs); err != nil {
		return 0, fmt.Errorf("index %s: %w", rel, err)
	}
	idx.logger.Debug("indexed file", "source", rel, "chunks", len(docs))
	return len(docs), nil
}
