// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index provides approximate nearest-neighbor lookup over paper
// embeddings. The corpus store persists the raw vectors; this index is
// rebuilt from them at load time, so it never touches disk itself.
package index

import (
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// Result is one nearest-neighbor hit. Score is cosine similarity mapped
// to [0,1], higher is closer.
type Result struct {
	ID    string
	Score float64
}

// VectorIndex answers k-nearest-neighbor queries over paper vectors.
type VectorIndex interface {
	Upsert(id string, vec []float32) error
	Query(vec []float32, k int) ([]Result, error)
	Len() int
}

// HNSW is an in-memory hierarchical navigable small world index over
// cosine distance. Safe for concurrent use.
type HNSW struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	dims    int
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// NewHNSW builds an empty index for vectors of the given dimensionality.
func NewHNSW(dims int) *HNSW {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	return &HNSW{
		graph:  graph,
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// Upsert inserts or replaces the vector for id. Replacement is lazy: the
// old node stays in the graph but loses its ID mapping, because coder/hnsw
// misbehaves when the last node is deleted.
func (h *HNSW) Upsert(id string, vec []float32) error {
	if len(vec) != h.dims {
		return fmt.Errorf("vector for %s has %d dimensions, index wants %d", id, len(vec), h.dims)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if oldKey, ok := h.idMap[id]; ok {
		delete(h.keyMap, oldKey)
	}
	key := h.nextKey
	h.nextKey++

	v := make([]float32, len(vec))
	copy(v, vec)
	normalize(v)

	h.graph.Add(hnsw.MakeNode(key, v))
	h.idMap[id] = key
	h.keyMap[key] = id
	return nil
}

// Query returns up to k nearest IDs by cosine similarity. Orphaned nodes
// from lazy replacement are filtered out of the results.
func (h *HNSW) Query(vec []float32, k int) ([]Result, error) {
	if len(vec) != h.dims {
		return nil, fmt.Errorf("query vector has %d dimensions, index wants %d", len(vec), h.dims)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph.Len() == 0 {
		return nil, nil
	}

	q := make([]float32, len(vec))
	copy(q, vec)
	normalize(q)

	nodes := h.graph.Search(q, k)
	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		id, ok := h.keyMap[node.Key]
		if !ok {
			continue
		}
		dist := h.graph.Distance(q, node.Value)
		results = append(results, Result{ID: id, Score: 1 - float64(dist)/2})
	}
	return results, nil
}

// Len reports the number of live vectors.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idMap)
}

var _ VectorIndex = (*HNSW)(nil)

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
