package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/graphrag/pkg/graph"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"
)

// IngestQueue receives one message per path to ingest.
const IngestQueue = "ingest_queue"

// IngestMsg is the body of an ingest job.
type IngestMsg struct {
	Path string `json:"path"`
}

// Ingester is the part of graph.GraphClient the worker uses.
type Ingester interface {
	IngestPath(ctx context.Context, root string) (*graph.BatchReport, error)
}

// PublishIngest enqueues one ingest job per path.
func PublishIngest(ctx context.Context, ch Publisher, paths ...string) error {
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			return errors.New("empty path")
		}
		data, err := json.Marshal(IngestMsg{Path: p})
		if err != nil {
			return err
		}
		if err := PublishFIFO(ctx, ch, IngestQueue, data); err != nil {
			return fmt.Errorf("failed to publish %s: %w", p, err)
		}
		logger.Debug("[Queue] ingest job published", "path", p)
	}
	return nil
}

// IngestHandler returns the Handler for IngestQueue. A job fails when its
// path cannot be walked or when every file below it failed; partial
// failures are logged by the ingester and the job is acked.
func IngestHandler(g Ingester) Handler {
	return func(ctx context.Context, body []byte) error {
		var msg IngestMsg
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("invalid ingest message: %w", err)
		}
		if strings.TrimSpace(msg.Path) == "" {
			return errors.New("invalid ingest message: empty path")
		}

		batch, err := g.IngestPath(ctx, msg.Path)
		if err != nil {
			return err
		}
		failed := batch.Failed()
		if len(failed) > 0 && len(failed) == len(batch.Files) {
			errs := make([]error, len(failed))
			for i, f := range failed {
				errs[i] = f.Err
			}
			return errors.Join(errs...)
		}
		return nil
	}
}
