package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/graphrag/pkg/common"
	"github.com/OFFIS-RIT/graphrag/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const maxFacts = 50

func (s *GraphDBStorage) MergeDocument(ctx context.Context, doc common.Document) (common.Document, bool, error) {
	var (
		stored  common.Document
		created bool
	)
	err := s.conn.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO documents (id, file_name, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (file_name) DO NOTHING
			RETURNING id, file_name, created_at
		)
		SELECT id, file_name, created_at, true FROM ins
		UNION ALL
		SELECT id, file_name, created_at, false FROM documents
		WHERE file_name = $2 AND NOT EXISTS (SELECT 1 FROM ins)`,
		doc.ID, doc.FileName, doc.CreatedAt,
	).Scan(&stored.ID, &stored.FileName, &stored.CreatedAt, &created)
	if err != nil {
		return common.Document{}, false, fmt.Errorf("failed to merge document: %w", wrapErr(err))
	}
	return stored, created, nil
}

func (s *GraphDBStorage) DeleteDocumentChunks(ctx context.Context, docID string) (int, error) {
	tag, err := s.conn.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, docID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", wrapErr(err))
	}
	return int(tag.RowsAffected()), nil
}

func (s *GraphDBStorage) CreateChunk(ctx context.Context, docID string, chunk common.Chunk) error {
	var embedding *pgvector.Vector
	if len(chunk.Embedding) > 0 {
		v := pgvector.NewVector(chunk.Embedding)
		embedding = &v
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO chunks (id, document_id, text, embedding, idx)
		VALUES ($1, $2, $3, $4, $5)`,
		chunk.ID, docID, chunk.Text, embedding, chunk.Index,
	)
	if err != nil {
		switch pgCode(err) {
		case pgForeignKeyViolation:
			return fmt.Errorf("document %q: %w", docID, store.ErrNotFound)
		case pgUniqueViolation:
			return fmt.Errorf("chunk id %q violates constraint chunk_id: %w", chunk.ID, err)
		}
		return fmt.Errorf("failed to create chunk: %w", wrapErr(err))
	}
	return nil
}

func (s *GraphDBStorage) LinkChunks(ctx context.Context, prevID, nextID string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO chunk_links (prev_id, next_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		prevID, nextID,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("chunks %q -> %q: %w", prevID, nextID, store.ErrNotFound)
		}
		return fmt.Errorf("failed to link chunks: %w", wrapErr(err))
	}
	return nil
}

func (s *GraphDBStorage) MergeEntity(ctx context.Context, entity common.Entity, chunkID string) error {
	if err := store.CheckIdentifier(entity.Label); err != nil {
		return err
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", wrapErr(err))
	}
	defer tx.Rollback(ctx)

	props := entity.Properties
	if props == nil {
		props = map[string]string{}
	}

	var entityID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO entities (label, name, properties) VALUES ($1, $2, $3)
		ON CONFLICT (label, name)
		DO UPDATE SET properties = entities.properties || EXCLUDED.properties
		RETURNING id`,
		entity.Label, entity.Name, props,
	).Scan(&entityID)
	if err != nil {
		return fmt.Errorf("failed to merge entity: %w", wrapErr(err))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO mentions (entity_id, chunk_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		entityID, chunkID,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("chunk %q: %w", chunkID, store.ErrNotFound)
		}
		return fmt.Errorf("failed to link mention: %w", wrapErr(err))
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStorage) FindEntities(ctx context.Context, name string, labels []string) ([]common.EntityRef, error) {
	labels = store.DedupeStrings(labels)
	if len(labels) == 0 {
		return nil, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT label, name FROM entities
		WHERE name = $1 AND label = ANY($2)
		ORDER BY label`,
		name, labels,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find entities: %w", wrapErr(err))
	}
	refs, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.EntityRef, error) {
		var ref common.EntityRef
		err := row.Scan(&ref.Label, &ref.Name)
		return ref, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read entities: %w", err)
	}
	return refs, nil
}

func (s *GraphDBStorage) MergeRelationship(ctx context.Context, rel common.Relationship) error {
	for _, id := range []string{rel.Source.Label, rel.Target.Label, rel.Type} {
		if err := store.CheckIdentifier(id); err != nil {
			return err
		}
	}
	props := rel.Properties
	if props == nil {
		props = map[string]string{}
	}

	tag, err := s.conn.Exec(ctx, `
		INSERT INTO relationships (source_id, type, target_id, properties)
		SELECT src.id, $3::text, tgt.id, $6::jsonb
		FROM entities src, entities tgt
		WHERE src.label = $1::text AND src.name = $2::text AND tgt.label = $4::text AND tgt.name = $5::text
		ON CONFLICT (source_id, type, target_id)
		DO UPDATE SET properties = relationships.properties || EXCLUDED.properties`,
		rel.Source.Label, rel.Source.Name, rel.Type, rel.Target.Label, rel.Target.Name, props,
	)
	if err != nil {
		return fmt.Errorf("failed to merge relationship: %w", wrapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("relationship %s -[%s]-> %s: %w", rel.Source.Name, rel.Type, rel.Target.Name, store.ErrNotFound)
	}
	return nil
}

// EnsureVectorIndex creates an HNSW cosine index over embeddings cast to the
// given dimensionality.
func (s *GraphDBStorage) EnsureVectorIndex(ctx context.Context, name string, dims int) error {
	if err := store.CheckIdentifier(name); err != nil {
		return err
	}
	if dims <= 0 {
		return fmt.Errorf("invalid vector dimensions %d", dims)
	}

	sql := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON chunks USING hnsw ((embedding::vector(%d)) vector_cosine_ops)`,
		pgxv5.Identifier{name}.Sanitize(), dims,
	)
	if _, err := s.conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to create vector index %s: %w", name, wrapErr(err))
	}
	s.dims.Store(int64(dims))
	return nil
}

// EnsureUniqueConstraint records the constraint. Uniqueness of document ids,
// chunk ids and (label, name) is enforced by the table keys.
func (s *GraphDBStorage) EnsureUniqueConstraint(ctx context.Context, name, label, property string) error {
	for _, id := range []string{name, label, property} {
		if err := store.CheckIdentifier(id); err != nil {
			return err
		}
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO graph_constraints (name, label, property) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`,
		name, label, property,
	)
	if err != nil {
		return fmt.Errorf("failed to create constraint %s: %w", name, wrapErr(err))
	}
	return nil
}

func (s *GraphDBStorage) VectorSearch(ctx context.Context, embedding []float32, k int) ([]common.ScoredChunk, error) {
	dims := int(s.dims.Load())
	if k <= 0 || len(embedding) == 0 || dims <= 0 || len(embedding) != dims {
		return []common.ScoredChunk{}, nil
	}

	var exists bool
	if err := s.conn.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, store.VectorIndexName).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check vector index: %w", wrapErr(err))
	}
	if !exists {
		return []common.ScoredChunk{}, nil
	}

	sql := fmt.Sprintf(`
		SELECT id, text, 1 - (embedding::vector(%[1]d) <=> $1) / 2 AS score
		FROM chunks
		WHERE embedding IS NOT NULL AND vector_dims(embedding) = %[1]d
		ORDER BY embedding::vector(%[1]d) <=> $1, seq
		LIMIT $2`, dims)
	rows, err := s.conn.Query(ctx, sql, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", wrapErr(err))
	}
	hits, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.ScoredChunk, error) {
		var hit common.ScoredChunk
		err := row.Scan(&hit.ID, &hit.Text, &hit.Score)
		return hit, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return hits, nil
}

func (s *GraphDBStorage) ContextWindow(ctx context.Context, chunkID string) (*common.ContextWindow, error) {
	var w common.ContextWindow
	err := s.conn.QueryRow(ctx, `
		SELECT p.text, c.text, n.text
		FROM chunks c
		LEFT JOIN chunk_links lp ON lp.next_id = c.id
		LEFT JOIN chunks p ON p.id = lp.prev_id
		LEFT JOIN chunk_links ln ON ln.prev_id = c.id
		LEFT JOIN chunks n ON n.id = ln.next_id
		WHERE c.id = $1
		LIMIT 1`,
		chunkID,
	).Scan(&w.Prev, &w.Current, &w.Next)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load context window: %w", wrapErr(err))
	}
	return &w, nil
}

func (s *GraphDBStorage) Facts(ctx context.Context, chunkIDs []string) ([]common.Fact, error) {
	chunkIDs = store.DedupeStrings(chunkIDs)
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	rows, err := s.conn.Query(ctx, `
		WITH mentioned AS (
			SELECT DISTINCT entity_id FROM mentions WHERE chunk_id = ANY($1)
		)
		SELECT src.label, src.name, r.type, tgt.label, tgt.name
		FROM relationships r
		JOIN entities src ON src.id = r.source_id
		JOIN entities tgt ON tgt.id = r.target_id
		WHERE r.source_id IN (SELECT entity_id FROM mentioned)
		   OR r.target_id IN (SELECT entity_id FROM mentioned)
		ORDER BY src.name, r.type, tgt.name
		LIMIT $2`,
		chunkIDs, maxFacts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", wrapErr(err))
	}
	facts, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Fact, error) {
		var f common.Fact
		err := row.Scan(&f.Source.Label, &f.Source.Name, &f.Type, &f.Target.Label, &f.Target.Name)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read facts: %w", err)
	}
	return facts, nil
}
