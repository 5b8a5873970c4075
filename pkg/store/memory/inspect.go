package memory

import (
	"cmp"
	"maps"
	"slices"

	"github.com/OFFIS-RIT/graphrag/pkg/common"
)

// Documents returns all documents ordered by file name.
func (s *Store) Documents() []common.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Collect(maps.Values(s.docs))
	slices.SortFunc(out, func(a, b common.Document) int {
		return cmp.Compare(a.FileName, b.FileName)
	})
	return out
}

// Chunks returns the chunks of a document in creation order.
func (s *Store) Chunks(docID string) []common.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.docChunks[docID]
	out := make([]common.Chunk, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.chunks[id].Chunk)
	}
	return out
}

// Next returns the successor of a chunk in the NEXT chain.
func (s *Store) Next(chunkID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.next[chunkID]
	return n, ok
}

// NextCount returns the number of NEXT edges in the graph.
func (s *Store) NextCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.next)
}

// Entity returns the stored entity for (label, name).
func (s *Store) Entity(label, name string) (common.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	props, ok := s.entities[entityKey{label: label, name: name}]
	if !ok {
		return common.Entity{}, false
	}
	return common.Entity{Label: label, Name: name, Properties: maps.Clone(props)}, true
}

// EntityCount returns the number of domain entities.
func (s *Store) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Mentions returns the chunk ids an entity is MENTIONED_IN.
func (s *Store) Mentions(label, name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.mentions[entityKey{label: label, name: name}])
}

// Relationships returns all domain relationships in creation order.
func (s *Store) Relationships() []common.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Relationship, 0, len(s.relOrder))
	for _, key := range s.relOrder {
		out = append(out, common.Relationship{
			Source:     common.EntityRef{Label: key.source.label, Name: key.source.name},
			Type:       key.typ,
			Target:     common.EntityRef{Label: key.target.label, Name: key.target.name},
			Properties: maps.Clone(s.rels[key]),
		})
	}
	return out
}

// Constraints returns the names of all ensured constraints in lexical order.
func (s *Store) Constraints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.constraints))
}

// VectorIndex returns the ensured vector index name and dimensions.
func (s *Store) VectorIndex() (string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectorIndex, s.vectorDims
}
