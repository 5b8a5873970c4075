package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/graphrag/internal/util"
	"github.com/OFFIS-RIT/graphrag/pkg/common"
	"github.com/OFFIS-RIT/graphrag/pkg/loader"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// IngestReport summarises one document ingestion. Failures lists the chunks
// whose extraction or embedding failed; Skipped lists the entities and
// relationships that were dropped without failing their chunk.
type IngestReport struct {
	FileName      string
	DocumentID    string
	Created       bool
	Replaced      int
	Chunks        int
	Entities      int
	Relationships int
	Skipped       []error
	Failures      []*ChunkError
}

// FileResult is the outcome for one file of a batch.
type FileResult struct {
	Path   string
	Report *IngestReport
	Err    error
}

// BatchReport lists the files of a batch in the order they were walked.
type BatchReport struct {
	Files []FileResult
}

// Failed returns the files that could not be ingested.
func (b *BatchReport) Failed() []FileResult {
	var out []FileResult
	for _, f := range b.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Ingest writes one document into the graph. segments are the raw text
// segments in document order.
//
// Each chunk is stored and linked to the document before extraction runs,
// so its text survives any extraction failure. Extraction failures are
// recorded in the report and never stop the document. Only store, split
// and context errors are returned; the report then describes the partial
// result.
//
// When the store implements DocumentLocker the document is ingested under
// its lock.
func (g *GraphClient) Ingest(ctx context.Context, fileName string, segments []string) (*IngestReport, error) {
	locker, ok := g.store.(DocumentLocker)
	if !ok {
		return g.ingest(ctx, fileName, segments)
	}

	var report *IngestReport
	err := locker.WithDocumentLock(ctx, fileName, func(ctx context.Context) error {
		var err error
		report, err = g.ingest(ctx, fileName, segments)
		return err
	})
	if report == nil {
		return &IngestReport{FileName: fileName}, fmt.Errorf("failed to lock document %s: %w", fileName, storeErr(err))
	}
	return report, err
}

func (g *GraphClient) ingest(ctx context.Context, fileName string, segments []string) (*IngestReport, error) {
	report := &IngestReport{FileName: fileName}

	chunks, err := g.splitter.Split(segments)
	if err != nil {
		return report, fmt.Errorf("%w: split %s: %w", ErrDocumentLoad, fileName, err)
	}

	docID, err := util.NewID()
	if err != nil {
		return report, err
	}
	doc, created, err := g.store.MergeDocument(ctx, common.Document{
		ID:        docID,
		FileName:  fileName,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return report, fmt.Errorf("failed to merge document %s: %w", fileName, storeErr(err))
	}
	report.DocumentID = doc.ID
	report.Created = created

	if !created && g.reingestMode == ReingestReplace {
		n, err := g.store.DeleteDocumentChunks(ctx, doc.ID)
		if err != nil {
			return report, fmt.Errorf("failed to delete previous chunks of %s: %w", fileName, storeErr(err))
		}
		report.Replaced = n
		logger.Debug("[Ingest] replaced previous chunks", "file", fileName, "deleted", n)
	}

	logger.Info("[Ingest] Processing", "file", fileName, "document_id", doc.ID, "chunks", len(chunks), "created", created)

	prevID := ""
	for i, text := range chunks {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		chunkID, err := util.NewID()
		if err != nil {
			return report, err
		}

		embedding, err := g.embedder.GenerateEmbedding(ctx, []byte(text))
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Warn("[Ingest] embedding failed", "file", fileName, "chunk", i, "err", err)
			report.Failures = append(report.Failures, &ChunkError{
				Index:   i,
				ChunkID: chunkID,
				Err:     fmt.Errorf("%w: %w", ErrEmbeddingFailed, err),
			})
			embedding = nil
		}

		err = g.store.CreateChunk(ctx, doc.ID, common.Chunk{
			ID:        chunkID,
			Text:      text,
			Embedding: embedding,
			Index:     i,
		})
		if err != nil {
			return report, fmt.Errorf("failed to create chunk %d of %s: %w", i, fileName, storeErr(err))
		}
		report.Chunks++

		if err := g.extractChunk(ctx, report, i, chunkID, text); err != nil {
			return report, err
		}

		if prevID != "" {
			if err := g.store.LinkChunks(ctx, prevID, chunkID); err != nil {
				return report, fmt.Errorf("failed to link chunk %d of %s: %w", i, fileName, storeErr(err))
			}
		}
		prevID = chunkID
	}

	logger.Info(
		"[Ingest] Document ingested",
		"file", fileName,
		"chunks", report.Chunks,
		"entities", report.Entities,
		"relationships", report.Relationships,
		"skipped", len(report.Skipped),
		"failed_chunks", len(report.Failures),
	)
	return report, nil
}

// extractChunk runs extraction for one stored chunk and merges the result.
// It returns an error only when the whole document has to stop.
func (g *GraphClient) extractChunk(ctx context.Context, report *IngestReport, index int, chunkID, text string) error {
	fail := func(msg string, err error) {
		logger.Warn(msg, "file", report.FileName, "chunk", index, "chunk_id", chunkID, "err", err)
		report.Failures = append(report.Failures, &ChunkError{Index: index, ChunkID: chunkID, Err: err})
	}

	extraction, err := g.extractor.Extract(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
		fail("[Ingest] extraction failed", err)
		return nil
	}

	if err := g.mergeExtraction(ctx, report, chunkID, extraction); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrStoreUnavailable) {
			return fmt.Errorf("chunk %d of %s: %w", index, report.FileName, err)
		}
		fail("[Ingest] merging extraction failed", err)
	}
	return nil
}

// IngestFile loads a single file and ingests it.
func (g *GraphClient) IngestFile(ctx context.Context, path string) (*IngestReport, error) {
	if g.loader == nil {
		return nil, errors.New("graph client has no document loader")
	}
	name, segments, err := g.loader.Load(ctx, path)
	if err != nil {
		return nil, loadErr(path, err)
	}
	return g.Ingest(ctx, name, segments)
}

// IngestPath ingests a file or every supported file below a directory.
// Failed files are logged and reported; they do not stop the batch. The
// returned error is only set when root itself cannot be walked or ctx ends.
func (g *GraphClient) IngestPath(ctx context.Context, root string) (*BatchReport, error) {
	if g.loader == nil {
		return nil, errors.New("graph client has no document loader")
	}
	files, err := g.loader.Walk(ctx, root)
	if err != nil {
		return nil, loadErr(root, err)
	}

	batch := &BatchReport{Files: make([]FileResult, len(files))}
	logger.Info("[Ingest] Batch", "root", root, "total_files", len(files), "parallel", g.parallelFiles)

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelFiles)
	for i, f := range files {
		eg.Go(func() error {
			report, err := g.IngestFile(gCtx, f)
			if err != nil {
				logger.Error("[Ingest] file failed", "file", f, "err", err)
			}
			batch.Files[i] = FileResult{Path: f, Report: report, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return batch, err
	}
	logger.Info("[Ingest] Batch completed", "root", root, "files", len(files), "failed", len(batch.Failed()))
	return batch, nil
}

func loadErr(path string, err error) error {
	if errors.Is(err, loader.ErrUnsupportedFileType) {
		return fmt.Errorf("%w: %s: %w", ErrUnsupportedFile, path, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrDocumentLoad, path, err)
}
