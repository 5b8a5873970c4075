package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/graphrag/pkg/common"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
)

const maxFacts = 50

func (s *GraphNeo4jStorage) MergeDocument(ctx context.Context, doc common.Document) (common.Document, bool, error) {
	res, err := s.write(ctx, `
		MERGE (d:Document {fileName: $fileName})
		ON CREATE SET d.id = $id, d.createdAt = $createdAt
		RETURN d.id AS id, d.fileName AS fileName, d.createdAt AS createdAt`,
		map[string]any{
			"fileName":  doc.FileName,
			"id":        doc.ID,
			"createdAt": doc.CreatedAt,
		})
	if err != nil {
		return common.Document{}, false, fmt.Errorf("failed to merge document: %w", err)
	}
	if len(res.records) == 0 {
		return common.Document{}, false, fmt.Errorf("merge document returned no rows")
	}

	record := res.records[0]
	stored := common.Document{
		ID:       stringValue(record, "id"),
		FileName: stringValue(record, "fileName"),
	}
	if v, ok := record.Get("createdAt"); ok {
		if t, ok := v.(time.Time); ok {
			stored.CreatedAt = t
		}
	}
	created := res.summary != nil && res.summary.Counters().NodesCreated() > 0
	return stored, created, nil
}

func (s *GraphNeo4jStorage) DeleteDocumentChunks(ctx context.Context, docID string) (int, error) {
	res, err := s.write(ctx, `
		MATCH (:Document {id: $docId})-[:HAS_CHUNK]->(c:Chunk)
		DETACH DELETE c`,
		map[string]any{"docId": docID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	return res.summary.Counters().NodesDeleted(), nil
}

func (s *GraphNeo4jStorage) CreateChunk(ctx context.Context, docID string, chunk common.Chunk) error {
	res, err := s.write(ctx, `
		MATCH (d:Document {id: $docId})
		CREATE (c:Chunk {id: $id, text: $text, embedding: $embedding, index: $index})
		MERGE (d)-[:HAS_CHUNK]->(c)
		RETURN c.id AS id`,
		map[string]any{
			"docId":     docID,
			"id":        chunk.ID,
			"text":      chunk.Text,
			"embedding": embeddingParam(chunk.Embedding),
			"index":     chunk.Index,
		})
	if err != nil {
		return fmt.Errorf("failed to create chunk: %w", err)
	}
	if len(res.records) == 0 {
		return fmt.Errorf("document %q: %w", docID, store.ErrNotFound)
	}
	return nil
}

func (s *GraphNeo4jStorage) LinkChunks(ctx context.Context, prevID, nextID string) error {
	res, err := s.write(ctx, `
		MATCH (a:Chunk {id: $prev}), (b:Chunk {id: $next})
		MERGE (a)-[:NEXT]->(b)
		RETURN count(*) AS n`,
		map[string]any{"prev": prevID, "next": nextID})
	if err != nil {
		return fmt.Errorf("failed to link chunks: %w", err)
	}
	if len(res.records) == 0 || int64Value(res.records[0], "n") == 0 {
		return fmt.Errorf("chunks %q -> %q: %w", prevID, nextID, store.ErrNotFound)
	}
	return nil
}

func (s *GraphNeo4jStorage) MergeEntity(ctx context.Context, entity common.Entity, chunkID string) error {
	label, err := quote(entity.Label)
	if err != nil {
		return err
	}

	cypher := fmt.Sprintf(`
		MATCH (c:Chunk {id: $chunkId})
		MERGE (e:%s {name: $name})
		SET e += $props
		MERGE (e)-[:MENTIONED_IN]->(c)
		RETURN count(e) AS n`, label)
	res, err := s.write(ctx, cypher, map[string]any{
		"chunkId": chunkID,
		"name":    entity.Name,
		"props":   propsParam(entity.Properties),
	})
	if err != nil {
		return fmt.Errorf("failed to merge entity: %w", err)
	}
	if len(res.records) == 0 || int64Value(res.records[0], "n") == 0 {
		return fmt.Errorf("chunk %q: %w", chunkID, store.ErrNotFound)
	}
	return nil
}

func (s *GraphNeo4jStorage) FindEntities(ctx context.Context, name string, labels []string) ([]common.EntityRef, error) {
	labels = store.DedupeStrings(labels)
	if len(labels) == 0 {
		return nil, nil
	}

	records, err := s.read(ctx, `
		MATCH (e {name: $name})
		WITH e, [l IN labels(e) WHERE l IN $labels] AS matched
		WHERE size(matched) > 0
		RETURN matched[0] AS label, e.name AS name`,
		map[string]any{"name": name, "labels": labels})
	if err != nil {
		return nil, fmt.Errorf("failed to find entities: %w", err)
	}

	out := make([]common.EntityRef, 0, len(records))
	for _, r := range records {
		out = append(out, common.EntityRef{
			Label: stringValue(r, "label"),
			Name:  stringValue(r, "name"),
		})
	}
	return out, nil
}

func (s *GraphNeo4jStorage) MergeRelationship(ctx context.Context, rel common.Relationship) error {
	srcLabel, err := quote(rel.Source.Label)
	if err != nil {
		return err
	}
	tgtLabel, err := quote(rel.Target.Label)
	if err != nil {
		return err
	}
	relType, err := quote(rel.Type)
	if err != nil {
		return err
	}

	cypher := fmt.Sprintf(`
		MATCH (s:%s {name: $source}), (t:%s {name: $target})
		MERGE (s)-[r:%s]->(t)
		SET r += $props
		RETURN count(r) AS n`, srcLabel, tgtLabel, relType)
	res, err := s.write(ctx, cypher, map[string]any{
		"source": rel.Source.Name,
		"target": rel.Target.Name,
		"props":  propsParam(rel.Properties),
	})
	if err != nil {
		return fmt.Errorf("failed to merge relationship: %w", err)
	}
	if len(res.records) == 0 || int64Value(res.records[0], "n") == 0 {
		return fmt.Errorf("relationship %s -[%s]-> %s: %w", rel.Source.Name, rel.Type, rel.Target.Name, store.ErrNotFound)
	}
	return nil
}

func (s *GraphNeo4jStorage) EnsureVectorIndex(ctx context.Context, name string, dims int) error {
	index, err := quote(name)
	if err != nil {
		return err
	}
	if dims <= 0 {
		return fmt.Errorf("invalid vector dimensions %d", dims)
	}

	cypher := fmt.Sprintf(`
		CREATE VECTOR INDEX %s IF NOT EXISTS
		FOR (c:Chunk) ON (c.embedding)
		OPTIONS {indexConfig: {
			`+"`vector.dimensions`"+`: %d,
			`+"`vector.similarity_function`"+`: 'cosine'
		}}`, index, dims)
	if err := s.schema(ctx, cypher); err != nil {
		return fmt.Errorf("failed to create vector index %s: %w", name, err)
	}
	return nil
}

func (s *GraphNeo4jStorage) EnsureUniqueConstraint(ctx context.Context, name, label, property string) error {
	qName, err := quote(name)
	if err != nil {
		return err
	}
	qLabel, err := quote(label)
	if err != nil {
		return err
	}
	qProp, err := quote(property)
	if err != nil {
		return err
	}

	cypher := fmt.Sprintf(
		"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
		qName, qLabel, qProp,
	)
	if err := s.schema(ctx, cypher); err != nil {
		return fmt.Errorf("failed to create constraint %s: %w", name, err)
	}
	return nil
}

func (s *GraphNeo4jStorage) VectorSearch(ctx context.Context, embedding []float32, k int) ([]common.ScoredChunk, error) {
	if k <= 0 || len(embedding) == 0 {
		return []common.ScoredChunk{}, nil
	}

	records, err := s.read(ctx, `
		CALL db.index.vector.queryNodes($index, $k, $embedding)
		YIELD node, score
		RETURN node.text AS text, score, node.id AS id`,
		map[string]any{
			"index":     store.VectorIndexName,
			"k":         k,
			"embedding": embeddingParam(embedding),
		})
	if err != nil {
		if isMissingIndex(err) {
			logger.Debug("[Neo4j] Vector index missing, returning no results", "index", store.VectorIndexName)
			return []common.ScoredChunk{}, nil
		}
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	out := make([]common.ScoredChunk, 0, len(records))
	for _, r := range records {
		score, _ := r.Get("score")
		f, _ := score.(float64)
		out = append(out, common.ScoredChunk{
			ID:    stringValue(r, "id"),
			Text:  stringValue(r, "text"),
			Score: f,
		})
	}
	return out, nil
}

func (s *GraphNeo4jStorage) ContextWindow(ctx context.Context, chunkID string) (*common.ContextWindow, error) {
	records, err := s.read(ctx, `
		MATCH (c:Chunk {id: $id})
		OPTIONAL MATCH (p:Chunk)-[:NEXT]->(c)
		OPTIONAL MATCH (c)-[:NEXT]->(n:Chunk)
		RETURN p.text AS prev, c.text AS curr, n.text AS next
		LIMIT 1`,
		map[string]any{"id": chunkID})
	if err != nil {
		return nil, fmt.Errorf("failed to load context window: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	r := records[0]
	w := &common.ContextWindow{Current: stringValue(r, "curr")}
	if v, ok := r.Get("prev"); ok && v != nil {
		text, _ := v.(string)
		w.Prev = &text
	}
	if v, ok := r.Get("next"); ok && v != nil {
		text, _ := v.(string)
		w.Next = &text
	}
	return w, nil
}

func (s *GraphNeo4jStorage) Facts(ctx context.Context, chunkIDs []string) ([]common.Fact, error) {
	chunkIDs = store.DedupeStrings(chunkIDs)
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	records, err := s.read(ctx, `
		MATCH (c:Chunk)<-[:MENTIONED_IN]-(e)
		WHERE c.id IN $ids
		WITH DISTINCT e
		MATCH (e)-[r]-(o)
		WHERE NOT type(r) IN ['MENTIONED_IN', 'HAS_CHUNK', 'NEXT']
		WITH DISTINCT r
		WITH startNode(r) AS s, r, endNode(r) AS t
		RETURN labels(s)[0] AS sourceLabel, s.name AS sourceName, type(r) AS type,
			labels(t)[0] AS targetLabel, t.name AS targetName
		ORDER BY sourceName, type, targetName
		LIMIT $limit`,
		map[string]any{"ids": chunkIDs, "limit": maxFacts})
	if err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}

	out := make([]common.Fact, 0, len(records))
	for _, r := range records {
		out = append(out, common.Fact{
			Source: common.EntityRef{Label: stringValue(r, "sourceLabel"), Name: stringValue(r, "sourceName")},
			Type:   stringValue(r, "type"),
			Target: common.EntityRef{Label: stringValue(r, "targetLabel"), Name: stringValue(r, "targetName")},
		})
	}
	return out, nil
}
