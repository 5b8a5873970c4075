// Package memory is an in-process GraphStorage used by tests and by the
// "memory" store setting for throwaway runs.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/graphrag/pkg/common"
	"github.com/OFFIS-RIT/graphrag/pkg/store"
)

const maxFacts = 50

type entityKey struct {
	label string
	name  string
}

type relKey struct {
	source entityKey
	typ    string
	target entityKey
}

type chunkNode struct {
	common.Chunk
	docID string
	seq   int
}

// HookFunc is called before every operation with its name ("MergeEntity",
// "CreateChunk", ...). A non-nil error aborts the operation.
type HookFunc func(op string) error

// Option configures a Store.
type Option func(*Store)

// WithHook installs a HookFunc, typically to inject failures in tests.
func WithHook(fn HookFunc) Option {
	return func(s *Store) {
		s.hook = fn
	}
}

// Store keeps the whole graph in maps guarded by one RWMutex.
type Store struct {
	mu sync.RWMutex

	docs      map[string]common.Document // by file name
	docNames  map[string]string          // id -> file name
	chunks    map[string]*chunkNode
	docChunks map[string][]string
	next      map[string]string
	prev      map[string]string
	entities  map[entityKey]map[string]string
	mentions  map[entityKey][]string
	rels      map[relKey]map[string]string
	relOrder  []relKey

	vectorIndex string
	vectorDims  int
	constraints map[string]string

	seq    int
	closed bool
	hook   HookFunc
}

var _ store.GraphStorage = (*Store)(nil)

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:        make(map[string]common.Document),
		docNames:    make(map[string]string),
		chunks:      make(map[string]*chunkNode),
		docChunks:   make(map[string][]string),
		next:        make(map[string]string),
		prev:        make(map[string]string),
		entities:    make(map[entityKey]map[string]string),
		mentions:    make(map[entityKey][]string),
		rels:        make(map[relKey]map[string]string),
		constraints: make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) check(op string) error {
	if s.closed {
		return fmt.Errorf("%w: store closed", store.ErrUnavailable)
	}
	if s.hook != nil {
		if err := s.hook(op); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) MergeDocument(ctx context.Context, doc common.Document) (common.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("MergeDocument"); err != nil {
		return common.Document{}, false, err
	}
	if doc.FileName == "" {
		return common.Document{}, false, fmt.Errorf("document file name is empty")
	}

	if existing, ok := s.docs[doc.FileName]; ok {
		return existing, false, nil
	}
	if _, ok := s.docNames[doc.ID]; ok || doc.ID == "" {
		return common.Document{}, false, fmt.Errorf("document id %q violates constraint document_id", doc.ID)
	}
	s.docs[doc.FileName] = doc
	s.docNames[doc.ID] = doc.FileName
	return doc, true, nil
}

func (s *Store) DeleteDocumentChunks(ctx context.Context, docID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("DeleteDocumentChunks"); err != nil {
		return 0, err
	}

	ids := s.docChunks[docID]
	removed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		removed[id] = struct{}{}
		delete(s.chunks, id)
		if n, ok := s.next[id]; ok {
			delete(s.prev, n)
			delete(s.next, id)
		}
		if p, ok := s.prev[id]; ok {
			delete(s.next, p)
			delete(s.prev, id)
		}
	}
	delete(s.docChunks, docID)

	for key, chunkIDs := range s.mentions {
		s.mentions[key] = slices.DeleteFunc(chunkIDs, func(id string) bool {
			_, ok := removed[id]
			return ok
		})
	}
	return len(ids), nil
}

func (s *Store) CreateChunk(ctx context.Context, docID string, chunk common.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("CreateChunk"); err != nil {
		return err
	}
	if _, ok := s.docNames[docID]; !ok {
		return fmt.Errorf("document %q: %w", docID, store.ErrNotFound)
	}
	if _, ok := s.chunks[chunk.ID]; ok || chunk.ID == "" {
		return fmt.Errorf("chunk id %q violates constraint chunk_id", chunk.ID)
	}

	s.seq++
	c := chunk
	c.Embedding = slices.Clone(chunk.Embedding)
	s.chunks[chunk.ID] = &chunkNode{Chunk: c, docID: docID, seq: s.seq}
	s.docChunks[docID] = append(s.docChunks[docID], chunk.ID)
	return nil
}

func (s *Store) LinkChunks(ctx context.Context, prevID, nextID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("LinkChunks"); err != nil {
		return err
	}
	if _, ok := s.chunks[prevID]; !ok {
		return fmt.Errorf("chunk %q: %w", prevID, store.ErrNotFound)
	}
	if _, ok := s.chunks[nextID]; !ok {
		return fmt.Errorf("chunk %q: %w", nextID, store.ErrNotFound)
	}
	s.next[prevID] = nextID
	s.prev[nextID] = prevID
	return nil
}

func (s *Store) MergeEntity(ctx context.Context, entity common.Entity, chunkID string) error {
	if err := store.CheckIdentifier(entity.Label); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("MergeEntity"); err != nil {
		return err
	}
	if _, ok := s.chunks[chunkID]; !ok {
		return fmt.Errorf("chunk %q: %w", chunkID, store.ErrNotFound)
	}

	key := entityKey{label: entity.Label, name: entity.Name}
	s.entities[key] = common.MergeProperties(s.entities[key], entity.Properties)
	if !slices.Contains(s.mentions[key], chunkID) {
		s.mentions[key] = append(s.mentions[key], chunkID)
	}
	return nil
}

func (s *Store) FindEntities(ctx context.Context, name string, labels []string) ([]common.EntityRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("FindEntities"); err != nil {
		return nil, err
	}

	var out []common.EntityRef
	for _, label := range store.DedupeStrings(labels) {
		if _, ok := s.entities[entityKey{label: label, name: name}]; ok {
			out = append(out, common.EntityRef{Label: label, Name: name})
		}
	}
	return out, nil
}

func (s *Store) MergeRelationship(ctx context.Context, rel common.Relationship) error {
	for _, id := range []string{rel.Source.Label, rel.Target.Label, rel.Type} {
		if err := store.CheckIdentifier(id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("MergeRelationship"); err != nil {
		return err
	}

	src := entityKey{label: rel.Source.Label, name: rel.Source.Name}
	tgt := entityKey{label: rel.Target.Label, name: rel.Target.Name}
	if _, ok := s.entities[src]; !ok {
		return fmt.Errorf("source %s %q: %w", src.label, src.name, store.ErrNotFound)
	}
	if _, ok := s.entities[tgt]; !ok {
		return fmt.Errorf("target %s %q: %w", tgt.label, tgt.name, store.ErrNotFound)
	}

	key := relKey{source: src, typ: rel.Type, target: tgt}
	if _, ok := s.rels[key]; !ok {
		s.relOrder = append(s.relOrder, key)
	}
	s.rels[key] = common.MergeProperties(s.rels[key], rel.Properties)
	return nil
}

func (s *Store) EnsureVectorIndex(ctx context.Context, name string, dims int) error {
	if err := store.CheckIdentifier(name); err != nil {
		return err
	}
	if dims <= 0 {
		return fmt.Errorf("invalid vector dimensions %d", dims)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("EnsureVectorIndex"); err != nil {
		return err
	}
	if s.vectorIndex == "" {
		s.vectorIndex = name
		s.vectorDims = dims
	}
	return nil
}

func (s *Store) EnsureUniqueConstraint(ctx context.Context, name, label, property string) error {
	for _, id := range []string{name, label, property} {
		if err := store.CheckIdentifier(id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("EnsureUniqueConstraint:" + name); err != nil {
		return err
	}
	if _, ok := s.constraints[name]; !ok {
		s.constraints[name] = label + "." + property
	}
	return nil
}

func (s *Store) VectorSearch(ctx context.Context, embedding []float32, k int) ([]common.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("VectorSearch"); err != nil {
		return nil, err
	}
	if s.vectorIndex == "" || k <= 0 || len(embedding) != s.vectorDims {
		return []common.ScoredChunk{}, nil
	}

	type hit struct {
		common.ScoredChunk
		seq int
	}
	hits := make([]hit, 0, len(s.chunks))
	for _, c := range s.chunks {
		if len(c.Embedding) != s.vectorDims {
			continue
		}
		score, ok := cosineScore(embedding, c.Embedding)
		if !ok {
			continue
		}
		hits = append(hits, hit{
			ScoredChunk: common.ScoredChunk{ID: c.ID, Text: c.Text, Score: score},
			seq:         c.seq,
		})
	}
	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]common.ScoredChunk, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		out = append(out, h.ScoredChunk)
	}
	return out, nil
}

func (s *Store) ContextWindow(ctx context.Context, chunkID string) (*common.ContextWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("ContextWindow"); err != nil {
		return nil, err
	}

	c, ok := s.chunks[chunkID]
	if !ok {
		return nil, nil
	}
	w := &common.ContextWindow{Current: c.Text}
	if p, ok := s.prev[chunkID]; ok {
		text := s.chunks[p].Text
		w.Prev = &text
	}
	if n, ok := s.next[chunkID]; ok {
		text := s.chunks[n].Text
		w.Next = &text
	}
	return w, nil
}

func (s *Store) Facts(ctx context.Context, chunkIDs []string) ([]common.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("Facts"); err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		wanted[id] = struct{}{}
	}
	mentioned := make(map[entityKey]struct{})
	for key, ids := range s.mentions {
		for _, id := range ids {
			if _, ok := wanted[id]; ok {
				mentioned[key] = struct{}{}
				break
			}
		}
	}

	var facts []common.Fact
	for _, key := range s.relOrder {
		_, srcOK := mentioned[key.source]
		_, tgtOK := mentioned[key.target]
		if !srcOK && !tgtOK {
			continue
		}
		facts = append(facts, common.Fact{
			Source: common.EntityRef{Label: key.source.label, Name: key.source.name},
			Type:   key.typ,
			Target: common.EntityRef{Label: key.target.label, Name: key.target.name},
		})
	}
	slices.SortFunc(facts, compareFacts)
	if len(facts) > maxFacts {
		facts = facts[:maxFacts]
	}
	return facts, nil
}

func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func compareFacts(a, b common.Fact) int {
	return cmp.Or(
		cmp.Compare(a.Source.Name, b.Source.Name),
		cmp.Compare(a.Type, b.Type),
		cmp.Compare(a.Target.Name, b.Target.Name),
	)
}

// cosineScore maps cosine similarity into [0, 1] the same way the Neo4j
// vector index does.
func cosineScore(a, b []float32) (float64, bool) {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return (1 + cos) / 2, true
}
