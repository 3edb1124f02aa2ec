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
	"sync"
	"testing"

	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/dataset"
	"github.com/stretchr/testify/assert"
)

func TestGraph(t *testing.T) {
	g := NewGraph(2)
	g.AddEdge(0, 0, 1)
	g.AddEdge(0, 1, 1)
	g.AddEdge(4, 0, 0)
	g.AddEdge(1, base.NotId, 0)
	g.MarkTargetDomain(3)
	g.MarkTargetDomain(1)
	g.MarkSourceDomain(0)
	g.Freeze()

	assert.Equal(t, 5, g.NumVertices())
	assert.Equal(t, 4, g.NumEdges())
	assert.Equal(t, []Edge{{0, 1}, {1, 1}}, g.OutEdges(0))
	assert.Equal(t, []Edge{{base.NotId, 1}, {0, 4}}, g.InEdges(0))
	assert.Equal(t, 2, g.OutDegree(0))
	assert.Equal(t, 2, g.InDegree(0))
	assert.Equal(t, 4, g.Degree(0))
	assert.Equal(t, 2, g.PredicateCount(0))
	assert.Equal(t, 1, g.PredicateCount(1))
	assert.Zero(t, g.PredicateCount(2))
	assert.Zero(t, g.PredicateCount(base.NotId))
	assert.Equal(t, 3, g.TotalTriples())
	assert.Equal(t, []int32{1, 3}, g.Targets())
	assert.True(t, g.IsTarget(3))
	assert.False(t, g.IsTarget(0))
	assert.True(t, g.IsSource(0))
	assert.False(t, g.IsSource(-1))
	assert.Nil(t, g.OutEdges(10))
	assert.Nil(t, g.InEdges(-1))
}

func TestGraph_Undirected(t *testing.T) {
	g := NewGraph(0)
	g.AddUndirectedEdge(0, 0, 1)
	g.Freeze()
	assert.Equal(t, []Edge{{0, 1}}, g.OutEdges(0))
	assert.Equal(t, []Edge{{0, 0}}, g.OutEdges(1))
	assert.Equal(t, []Edge{{0, 1}}, g.InEdges(0))
	assert.Equal(t, 2, g.TotalTriples())
	assert.False(t, g.HasSourceDomain())
}

func TestBuildGraph(t *testing.T) {
	d := dataset.NewDataset()
	d.AddTriple("a", "p", "b")
	d.AddTriple("b", "q", "c")
	d.SetDomains([]string{"a"}, []string{"c", "d"})
	g := BuildGraph(d, false)
	assert.Equal(t, 4, g.NumVertices())
	assert.Equal(t, []Edge{{0, 1}}, g.OutEdges(0))
	assert.Equal(t, []int32{2, 3}, g.Targets())
	assert.True(t, g.IsSource(0))
	assert.True(t, g.HasSourceDomain())
	assert.False(t, g.Undirected())

	g = BuildGraph(d, true)
	assert.True(t, g.Undirected())
	assert.Equal(t, 4, g.NumEdges())
	assert.Equal(t, []Edge{{0, 0}, {1, 2}}, g.OutEdges(1))
}

func TestGraph_Reachability(t *testing.T) {
	// 0 -> 1 -> 2 -> 3, 0 -> 4
	g := NewGraph(6)
	g.AddEdge(0, 0, 1)
	g.AddEdge(1, 0, 2)
	g.AddEdge(2, 0, 3)
	g.AddEdge(0, 1, 4)
	g.AddEdge(3, 0, 0)
	g.Freeze()

	assert.Nil(t, g.GetAllReachableNodes(0))
	assert.Equal(t, []int32{1, 2, 4}, g.StoreReachability(0, 2))
	assert.Equal(t, []int32{1, 2, 4}, g.GetAllReachableNodes(0))
	assert.True(t, g.CanReach(0, 2))
	assert.False(t, g.CanReach(0, 3))
	assert.False(t, g.CanReach(1, 2))
	// the first stored hop bound wins
	assert.Equal(t, []int32{1, 2, 4}, g.StoreReachability(0, 3))
	// the source itself is never included
	assert.Equal(t, []int32{0, 1, 2, 4}, g.StoreReachability(3, 3))
	assert.Empty(t, g.StoreReachability(5, 3))
	assert.NotNil(t, g.GetAllReachableNodes(5))

	// concurrent memorization
	g = NewGraph(100)
	for i := int32(0); i < 99; i++ {
		g.AddEdge(i, 0, i+1)
	}
	g.Freeze()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			for src := int32(0); src < 100; src++ {
				g.StoreReachability(src, 3)
			}
		})
	}
	wg.Wait()
	assert.Equal(t, []int32{11, 12, 13}, g.GetAllReachableNodes(10))
	assert.Empty(t, g.GetAllReachableNodes(99))
}
