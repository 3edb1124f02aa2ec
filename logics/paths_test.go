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
	"math/rand/v2"
	"testing"

	"github.com/gorse-io/lodrec/dataset"
	"github.com/gorse-io/lodrec/storage"
	"github.com/stretchr/testify/assert"
)

const (
	movie1 int32 = iota
	drama
	movie2
	director1
	movie3
	comedy
)

const (
	genre int32 = iota
	directedBy
)

// movieGraph describes two dramas by the same director and an unrelated comedy.
func movieGraph() *storage.Graph {
	g := storage.NewGraph(6)
	g.AddEdge(movie1, genre, drama)
	g.AddEdge(movie2, genre, drama)
	g.AddEdge(movie1, directedBy, director1)
	g.AddEdge(movie2, directedBy, director1)
	g.AddEdge(movie3, genre, comedy)
	g.Freeze()
	return g
}

func TestFindAllPaths(t *testing.T) {
	g := movieGraph()
	paths := FindAllPaths(g, movie1, movie2, 2)
	assert.Equal(t, []Path{
		{Source: movie1, Steps: []Step{{genre, false, drama}, {genre, true, movie2}}},
		{Source: movie1, Steps: []Step{{directedBy, false, director1}, {directedBy, true, movie2}}},
	}, paths)
	assert.Equal(t, []int32{movie1, drama, movie2}, paths[0].Nodes())
	assert.Equal(t, movie2, paths[0].Target())
	assert.Equal(t, 2, paths[0].Len())

	// paths are simple, so a third hop adds nothing
	assert.Equal(t, paths, FindAllPaths(g, movie1, movie2, 3))
	assert.Empty(t, FindAllPaths(g, movie1, movie2, 1))
	assert.Empty(t, FindAllPaths(g, movie1, movie3, 5))
	assert.Empty(t, FindAllPaths(g, movie1, movie1, 5))
	assert.Empty(t, FindAllPaths(g, movie1, 100, 5))

	// reversed direction uses inverse steps first
	paths = FindAllPaths(g, drama, director1, 2)
	assert.Equal(t, []Path{
		{Source: drama, Steps: []Step{{genre, true, movie1}, {directedBy, false, director1}}},
		{Source: drama, Steps: []Step{{genre, true, movie2}, {directedBy, false, director1}}},
	}, paths)
}

func TestFindAllPaths_Undirected(t *testing.T) {
	d := dataset.NewDataset()
	d.AddTriple("movie1", "genre", "drama")
	d.AddTriple("movie2", "genre", "drama")
	d.AddTriple("movie1", "directedBy", "director1")
	d.AddTriple("movie2", "directedBy", "director1")
	m1, m2 := d.Resources.ToNumber("movie1"), d.Resources.ToNumber("movie2")

	directed := FindAllPaths(storage.BuildGraph(d, false), m1, m2, 3)
	assert.Len(t, directed, 2)
	undirected := FindAllPaths(storage.BuildGraph(d, true), m1, m2, 3)
	assert.Len(t, undirected, len(directed))
	for i, path := range undirected {
		assert.Equal(t, directed[i].Nodes(), path.Nodes())
		for _, step := range path.Steps {
			assert.False(t, step.Inverse)
		}
	}
}

func TestFindAllPaths_Duplicates(t *testing.T) {
	g := storage.NewGraph(2)
	g.AddEdge(0, 0, 1)
	g.AddEdge(0, 0, 1)
	g.AddEdge(0, 1, 1)
	g.Freeze()
	paths := FindAllPaths(g, 0, 1, 3)
	assert.Len(t, paths, 2)
}

func TestFindAllPaths_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	const n = 12
	g := storage.NewGraph(n)
	for i := 0; i < 24; i++ {
		g.AddEdge(int32(rng.IntN(n)), int32(rng.IntN(2)), int32(rng.IntN(n)))
	}
	g.Freeze()
	for trial := 0; trial < 20; trial++ {
		source, target := int32(rng.IntN(n)), int32(rng.IntN(n))
		if source == target {
			continue
		}
		var previous map[string]struct{}
		for hops := 1; hops <= 4; hops++ {
			paths := FindAllPaths(g, source, target, hops)
			current := make(map[string]struct{}, len(paths))
			for _, path := range paths {
				assert.Equal(t, source, path.Source)
				assert.Equal(t, target, path.Target())
				assert.LessOrEqual(t, path.Len(), hops)
				// no repeated vertex
				nodes := path.Nodes()
				assert.Len(t, nodes, countDistinct(nodes))
				current[path.key()] = struct{}{}
			}
			assert.Len(t, current, len(paths))
			for key := range previous {
				assert.Contains(t, current, key)
			}
			previous = current
		}
	}
}

func countDistinct(nodes []int32) int {
	set := make(map[int32]struct{}, len(nodes))
	for _, node := range nodes {
		set[node] = struct{}{}
	}
	return len(set)
}
