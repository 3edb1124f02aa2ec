// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"cmp"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/dataset"
)

// Edge is an adjacent vertex reached through a predicate. Synthetic edges carry base.NotId.
type Edge struct {
	Predicate int32
	Node      int32
}

// Graph is a directed multi-labeled graph over resource indices.
type Graph struct {
	out            [][]Edge
	in             [][]Edge
	predicateCount []int
	numEdges       int
	undirected     bool
	source         bitset.BitSet
	target         bitset.BitSet
	targets        []int32

	reachMutex sync.RWMutex
	reachable  map[int32]*bitset.BitSet
}

// NewGraph creates a graph with n vertices. Vertices are added on demand by AddEdge.
func NewGraph(n int) *Graph {
	return &Graph{
		out:       make([][]Edge, n),
		in:        make([][]Edge, n),
		reachable: make(map[int32]*bitset.BitSet),
	}
}

// BuildGraph creates a graph from the triples and the domains of a data set.
func BuildGraph(d *dataset.Dataset, undirected bool) *Graph {
	g := NewGraph(d.Resources.Len())
	g.undirected = undirected
	for _, t := range d.Triples {
		if undirected {
			g.AddUndirectedEdge(t.Subject, t.Predicate, t.Object)
		} else {
			g.AddEdge(t.Subject, t.Predicate, t.Object)
		}
	}
	for _, v := range d.SourceDomain {
		g.MarkSourceDomain(v)
	}
	for _, v := range d.TargetDomain {
		g.MarkTargetDomain(v)
	}
	g.Freeze()
	return g
}

func (g *Graph) addVertex(v int32) {
	for int(v) >= len(g.out) {
		g.out = append(g.out, nil)
		g.in = append(g.in, nil)
	}
}

// AddEdge inserts a directed edge. Both endpoints become vertices of the graph.
func (g *Graph) AddEdge(src, predicate, dst int32) {
	g.addVertex(src)
	g.addVertex(dst)
	g.out[src] = append(g.out[src], Edge{Predicate: predicate, Node: dst})
	g.in[dst] = append(g.in[dst], Edge{Predicate: predicate, Node: src})
	if predicate != base.NotId {
		for int(predicate) >= len(g.predicateCount) {
			g.predicateCount = append(g.predicateCount, 0)
		}
		g.predicateCount[predicate]++
	}
	g.numEdges++
}

// AddUndirectedEdge inserts an edge in both directions.
func (g *Graph) AddUndirectedEdge(a, predicate, b int32) {
	g.AddEdge(a, predicate, b)
	g.AddEdge(b, predicate, a)
}

// Freeze sorts adjacency lists by node and predicate.
func (g *Graph) Freeze() {
	less := func(a, b Edge) int {
		if c := cmp.Compare(a.Node, b.Node); c != 0 {
			return c
		}
		return cmp.Compare(a.Predicate, b.Predicate)
	}
	for v := range g.out {
		slices.SortFunc(g.out[v], less)
		slices.SortFunc(g.in[v], less)
	}
	g.targets = g.targets[:0]
	for i, ok := g.target.NextSet(0); ok; i, ok = g.target.NextSet(i + 1) {
		g.targets = append(g.targets, int32(i))
	}
}

// Undirected is true if every edge was inserted in both directions.
func (g *Graph) Undirected() bool {
	return g.undirected
}

// HasSourceDomain is true if at least one vertex is marked as source.
func (g *Graph) HasSourceDomain() bool {
	return g.source.Any()
}

func (g *Graph) NumVertices() int {
	return len(g.out)
}

func (g *Graph) NumEdges() int {
	return g.numEdges
}

func (g *Graph) HasVertex(v int32) bool {
	return v >= 0 && int(v) < len(g.out)
}

func (g *Graph) OutEdges(v int32) []Edge {
	if !g.HasVertex(v) {
		return nil
	}
	return g.out[v]
}

func (g *Graph) InEdges(v int32) []Edge {
	if !g.HasVertex(v) {
		return nil
	}
	return g.in[v]
}

func (g *Graph) OutDegree(v int32) int {
	return len(g.OutEdges(v))
}

func (g *Graph) InDegree(v int32) int {
	return len(g.InEdges(v))
}

// Degree returns the number of edges incident to a vertex.
func (g *Graph) Degree(v int32) int {
	return g.OutDegree(v) + g.InDegree(v)
}

// PredicateCount returns the number of edges labeled with a predicate.
func (g *Graph) PredicateCount(predicate int32) int {
	if predicate < 0 || int(predicate) >= len(g.predicateCount) {
		return 0
	}
	return g.predicateCount[predicate]
}

// TotalTriples returns the number of labeled edges.
func (g *Graph) TotalTriples() int {
	total := 0
	for _, count := range g.predicateCount {
		total += count
	}
	return total
}

func (g *Graph) MarkSourceDomain(v int32) {
	g.addVertex(v)
	g.source.Set(uint(v))
}

func (g *Graph) MarkTargetDomain(v int32) {
	g.addVertex(v)
	g.target.Set(uint(v))
}

func (g *Graph) IsSource(v int32) bool {
	return v >= 0 && g.source.Test(uint(v))
}

func (g *Graph) IsTarget(v int32) bool {
	return v >= 0 && g.target.Test(uint(v))
}

// Targets returns the target domain in ascending order. It is available after Freeze.
func (g *Graph) Targets() []int32 {
	return g.targets
}

// StoreReachability memorizes the vertices reachable from src through at most hops outgoing edges.
// src itself is not included.
func (g *Graph) StoreReachability(src int32, hops int) []int32 {
	if reached := g.GetAllReachableNodes(src); reached != nil {
		return reached
	}
	visited := bitset.New(uint(g.NumVertices()))
	if g.HasVertex(src) {
		visited.Set(uint(src))
		frontier := []int32{src}
		for hop := 0; hop < hops && len(frontier) > 0; hop++ {
			var next []int32
			for _, v := range frontier {
				for _, e := range g.out[v] {
					if !visited.Test(uint(e.Node)) {
						visited.Set(uint(e.Node))
						next = append(next, e.Node)
					}
				}
			}
			frontier = next
		}
		visited.Clear(uint(src))
	}
	g.reachMutex.Lock()
	defer g.reachMutex.Unlock()
	if _, exist := g.reachable[src]; !exist {
		g.reachable[src] = visited
	}
	return toIndices(g.reachable[src])
}

// GetAllReachableNodes returns the memorized reachable set of src, or nil if it was not stored.
func (g *Graph) GetAllReachableNodes(src int32) []int32 {
	g.reachMutex.RLock()
	defer g.reachMutex.RUnlock()
	if reached, exist := g.reachable[src]; exist {
		return toIndices(reached)
	}
	return nil
}

// CanReach tests whether dst is in the memorized reachable set of src.
func (g *Graph) CanReach(src, dst int32) bool {
	g.reachMutex.RLock()
	defer g.reachMutex.RUnlock()
	reached, exist := g.reachable[src]
	return exist && dst >= 0 && reached.Test(uint(dst))
}

func toIndices(b *bitset.BitSet) []int32 {
	indices := make([]int32, 0, b.Count())
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		indices = append(indices, int32(i))
	}
	return indices
}
