// Package ingest loads documents into the engine from directories of
// plain files or from JSON streams.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/localsearch/pkg/types"
)

// maxFileSize caps how large a single ingested file may be
const maxFileSize = 10 << 20

// defaultConcurrency is the worker count for directory ingestion
const defaultConcurrency = 4

// Upserter is the engine capability ingestion needs
type Upserter interface {
	Upsert(ctx context.Context, req types.DocumentRequest) error
}

// Stats summarizes an ingestion run
type Stats struct {
	Ingested int      `json:"ingested"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Ingestor feeds documents into the engine
type Ingestor struct {
	engine      Upserter
	concurrency int

	mu    sync.Mutex
	stats Stats
}

// New creates an ingestor. concurrency <= 0 selects the default.
func New(engine Upserter, concurrency int) *Ingestor {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Ingestor{engine: engine, concurrency: concurrency}
}

// IngestDir walks root and upserts every regular file, using the
// path relative to root as the document path. Hidden files and
// directories are skipped. Per-file failures are recorded in Stats
// rather than aborting the run.
func (in *Ingestor) IngestDir(ctx context.Context, root string) (Stats, error) {
	in.mu.Lock()
	in.stats = Stats{}
	in.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			in.recordSkip()
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			in.recordFailure(path, err)
			return nil
		}
		if info.Size() > maxFileSize {
			in.recordSkip()
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		g.Go(func() error {
			if err := in.ingestFile(ctx, path, filepath.ToSlash(rel)); err != nil {
				in.recordFailure(rel, err)
			}
			return nil
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return in.snapshot(), err
	}
	if walkErr != nil {
		return in.snapshot(), fmt.Errorf("failed to walk %s: %w", root, walkErr)
	}
	return in.snapshot(), nil
}

// IngestJSON reads a JSON array of document requests and upserts each
// one sequentially
func (in *Ingestor) IngestJSON(ctx context.Context, r io.Reader) (Stats, error) {
	in.mu.Lock()
	in.stats = Stats{}
	in.mu.Unlock()

	var reqs []types.DocumentRequest
	if err := json.NewDecoder(r).Decode(&reqs); err != nil {
		return in.snapshot(), fmt.Errorf("failed to decode documents: %w", err)
	}

	for _, req := range reqs {
		if req.Path == "" {
			in.recordFailure("(empty path)", fmt.Errorf("document path is required"))
			continue
		}
		if err := in.engine.Upsert(ctx, req); err != nil {
			in.recordFailure(req.Path, err)
			continue
		}
		in.recordSuccess()
	}
	return in.snapshot(), nil
}

func (in *Ingestor) ingestFile(ctx context.Context, path, docPath string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := in.engine.Upsert(ctx, types.DocumentRequest{
		Path:    docPath,
		Content: string(content),
	}); err != nil {
		return err
	}
	in.recordSuccess()
	return nil
}

func (in *Ingestor) recordSuccess() {
	in.mu.Lock()
	in.stats.Ingested++
	in.mu.Unlock()
}

func (in *Ingestor) recordSkip() {
	in.mu.Lock()
	in.stats.Skipped++
	in.mu.Unlock()
}

func (in *Ingestor) recordFailure(path string, err error) {
	in.mu.Lock()
	in.stats.Failed++
	in.stats.Errors = append(in.stats.Errors, fmt.Sprintf("%s: %v", path, err))
	in.mu.Unlock()
}

func (in *Ingestor) snapshot() Stats {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stats
}
