package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/graphrag/pkg/common"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
)

// mergeExtraction writes the entities of one extraction, then its
// relationships. Invalid labels and unresolvable endpoints only drop the
// affected item. Store errors stop the chunk.
func (g *GraphClient) mergeExtraction(ctx context.Context, report *IngestReport, chunkID string, ex *Extraction) error {
	if ex == nil {
		return nil
	}

	// labels the extraction itself gave each name, first one wins
	local := make(map[string]string, len(ex.Entities))
	for _, raw := range ex.Entities {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			g.skip(report, "entity", errors.New("entity without name"))
			continue
		}
		label, err := g.vocab.ValidateLabel(raw.Type)
		if err != nil {
			g.skip(report, "entity", fmt.Errorf("entity %q: %w", name, err))
			continue
		}

		entity := common.Entity{
			Label:      label,
			Name:       name,
			Properties: common.PropertyMap(raw.Properties),
		}
		if err := g.store.MergeEntity(ctx, entity, chunkID); err != nil {
			return fmt.Errorf("failed to merge entity %s %q: %w", label, name, storeErr(err))
		}
		report.Entities++
		if _, ok := local[name]; !ok {
			local[name] = label
		}
	}

	for _, raw := range ex.Relationships {
		relType, err := g.vocab.ValidateRelationshipType(raw.Type)
		if err != nil {
			g.skip(report, "relationship", fmt.Errorf("relationship %q -> %q: %w", raw.Source, raw.Target, err))
			continue
		}
		source, err := g.resolveEndpoint(ctx, raw.Source, local)
		if err != nil {
			if err = g.skipEndpoint(report, err); err != nil {
				return err
			}
			continue
		}
		target, err := g.resolveEndpoint(ctx, raw.Target, local)
		if err != nil {
			if err = g.skipEndpoint(report, err); err != nil {
				return err
			}
			continue
		}

		rel := common.Relationship{
			Source:     source,
			Target:     target,
			Type:       relType,
			Properties: common.PropertyMap(raw.Properties),
		}
		if err := g.store.MergeRelationship(ctx, rel); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				g.skip(report, "relationship", fmt.Errorf("%w: %w", ErrUnresolvedEndpoint, err))
				continue
			}
			return fmt.Errorf("failed to merge relationship %s: %w", relType, storeErr(err))
		}
		report.Relationships++
	}
	return nil
}

// resolveEndpoint finds the entity a relationship endpoint refers to. A
// name that the same extraction typed is looked up under that label first;
// otherwise the bare name is matched across all vocabulary labels and must
// be unique.
func (g *GraphClient) resolveEndpoint(ctx context.Context, raw string, local map[string]string) (common.EntityRef, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return common.EntityRef{}, fmt.Errorf("%w: empty name", ErrUnresolvedEndpoint)
	}

	if label, ok := local[name]; ok {
		refs, err := g.store.FindEntities(ctx, name, []string{label})
		if err != nil {
			return common.EntityRef{}, storeErr(err)
		}
		if len(refs) == 1 {
			return refs[0], nil
		}
	}

	refs, err := g.store.FindEntities(ctx, name, g.vocab.Labels())
	if err != nil {
		return common.EntityRef{}, storeErr(err)
	}
	switch len(refs) {
	case 0:
		return common.EntityRef{}, fmt.Errorf("%w: %q", ErrUnresolvedEndpoint, name)
	case 1:
		return refs[0], nil
	default:
		labels := make([]string, len(refs))
		for i, r := range refs {
			labels[i] = r.Label
		}
		return common.EntityRef{}, fmt.Errorf("%w: %q is %s", ErrAmbiguousEndpoint, name, strings.Join(labels, ", "))
	}
}

func (g *GraphClient) skipEndpoint(report *IngestReport, err error) error {
	if !errors.Is(err, ErrUnresolvedEndpoint) && !errors.Is(err, ErrAmbiguousEndpoint) {
		return err
	}
	g.skip(report, "relationship", err)
	return nil
}

func (g *GraphClient) skip(report *IngestReport, kind string, err error) {
	switch {
	case errors.Is(err, ErrUnresolvedEndpoint):
		logger.Debug("[Ingest] "+kind+" skipped", "file", report.FileName, "err", err)
	default:
		logger.Warn("[Ingest] "+kind+" dropped", "file", report.FileName, "err", err)
	}
	report.Skipped = append(report.Skipped, err)
}
