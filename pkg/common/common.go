package common

import "time"

// Document is the graph node for one ingested file. It is identified by its
// file name; ID and CreatedAt are assigned once when the node is first created
// and never overwritten by later ingestions of the same file.
type Document struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a bounded slice of a document's text. Index is the ordinal position
// within the owning document and determines the NEXT chain.
type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	Index     int       `json:"index"`
}

// Property is a single key/value pair as returned by the extractor.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Entity is a typed, named domain node. (Label, Name) is its identity.
type Entity struct {
	Label      string            `json:"label"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
}

// EntityRef identifies an existing domain entity in the store.
type EntityRef struct {
	Label string `json:"label"`
	Name  string `json:"name"`
}

// Relationship is a typed directed edge between two resolved domain entities.
// (Source, Type, Target) is its merge key.
type Relationship struct {
	Source     EntityRef         `json:"source"`
	Target     EntityRef         `json:"target"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ScoredChunk is a single vector search hit.
type ScoredChunk struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// ContextWindow holds the texts of a chunk and its immediate neighbours in the
// NEXT chain. Prev and Next are nil at either end of the chain.
type ContextWindow struct {
	Prev    *string `json:"prev"`
	Current string  `json:"curr"`
	Next    *string `json:"next"`
}

// Fact is a domain relationship rendered for use as generation context.
type Fact struct {
	Source EntityRef `json:"source"`
	Type   string    `json:"type"`
	Target EntityRef `json:"target"`
}

// PropertyMap converts an ordered property list into a map. Later keys win,
// which matches the union semantics used when merging into the store.
func PropertyMap(props []Property) map[string]string {
	out := make(map[string]string, len(props))
	for _, p := range props {
		if p.Key == "" {
			continue
		}
		out[p.Key] = p.Value
	}
	return out
}

// MergeProperties returns the union of base and update; update wins on
// conflicting keys. Neither input is modified.
func MergeProperties(base, update map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(update))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}
