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

package logics

import (
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/storage"
)

// UserSubgraph is the closure of the items liked by a user. Vertices are renumbered densely,
// the user is vertex 0 and seeds follow in the given order.
type UserSubgraph struct {
	User     int32
	Seeds    []int32
	vertices []int32
	local    map[int32]int
	out      [][]storage.Edge
	numEdges int
}

// BuildUserSubgraph connects the user to every seed, then pulls the outgoing edges of the frontier
// until no new vertex is found. Finally, every vertex without outgoing edges except the user gets
// an edge back to the user.
func BuildUserSubgraph(g *storage.Graph, user int32, seeds []int32) *UserSubgraph {
	start := time.Now()
	sg := &UserSubgraph{
		User:  user,
		local: make(map[int32]int),
	}
	sg.addVertex(user)
	// iteration 0
	var frontier []int32
	for _, seed := range seeds {
		if seed == user {
			continue
		}
		if _, exist := sg.local[seed]; !exist {
			sg.addVertex(seed)
			sg.Seeds = append(sg.Seeds, seed)
			frontier = append(frontier, seed)
			sg.addEdge(user, base.NotId, seed)
		}
	}
	// following iterations
	expanded := bitset.New(uint(g.NumVertices()))
	for len(frontier) > 0 {
		var next []int32
		for _, v := range frontier {
			if !g.HasVertex(v) || expanded.Test(uint(v)) {
				continue
			}
			expanded.Set(uint(v))
			for _, e := range g.OutEdges(v) {
				if _, exist := sg.local[e.Node]; !exist {
					sg.addVertex(e.Node)
					next = append(next, e.Node)
				}
				sg.addEdge(v, e.Predicate, e.Node)
			}
		}
		frontier = next
	}
	// reconnect dead ends
	for i := 1; i < len(sg.vertices); i++ {
		if len(sg.out[i]) == 0 {
			sg.addEdge(sg.vertices[i], base.NotId, user)
		}
	}
	BuildSubgraphSeconds.Observe(time.Since(start).Seconds())
	return sg
}

func (sg *UserSubgraph) addVertex(v int32) {
	sg.local[v] = len(sg.vertices)
	sg.vertices = append(sg.vertices, v)
	sg.out = append(sg.out, nil)
}

func (sg *UserSubgraph) addEdge(src, predicate, dst int32) {
	i := sg.local[src]
	sg.out[i] = append(sg.out[i], storage.Edge{Predicate: predicate, Node: int32(sg.local[dst])})
	sg.numEdges++
}

// NumVertices returns the number of vertices including the user.
func (sg *UserSubgraph) NumVertices() int {
	return len(sg.vertices)
}

func (sg *UserSubgraph) NumEdges() int {
	return sg.numEdges
}

// Vertices returns resource indices of vertices in local order.
func (sg *UserSubgraph) Vertices() []int32 {
	return sg.vertices
}

// Local returns the local number of a resource.
func (sg *UserSubgraph) Local(v int32) (int, bool) {
	i, ok := sg.local[v]
	return i, ok
}

func (sg *UserSubgraph) Contains(v int32) bool {
	_, ok := sg.local[v]
	return ok
}

// OutEdges returns the outgoing edges of a resource. Edge nodes are resource indices.
func (sg *UserSubgraph) OutEdges(v int32) []storage.Edge {
	i, ok := sg.local[v]
	if !ok {
		return nil
	}
	edges := make([]storage.Edge, len(sg.out[i]))
	for j, e := range sg.out[i] {
		edges[j] = storage.Edge{Predicate: e.Predicate, Node: sg.vertices[e.Node]}
	}
	return edges
}
