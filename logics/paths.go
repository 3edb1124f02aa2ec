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
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/lodrec/storage"
)

// Step is a traversed edge. Inverse steps follow an edge against its direction.
type Step struct {
	Predicate int32
	Inverse   bool
	Node      int32
}

// Path is a simple path from Source through Steps.
type Path struct {
	Source int32
	Steps  []Step
}

// Len returns the number of edges.
func (p Path) Len() int {
	return len(p.Steps)
}

// Target returns the last node of the path.
func (p Path) Target() int32 {
	if len(p.Steps) == 0 {
		return p.Source
	}
	return p.Steps[len(p.Steps)-1].Node
}

// Nodes returns every node of the path in order.
func (p Path) Nodes() []int32 {
	nodes := make([]int32, 0, len(p.Steps)+1)
	nodes = append(nodes, p.Source)
	for _, step := range p.Steps {
		nodes = append(nodes, step.Node)
	}
	return nodes
}

func (p Path) contains(v int32) bool {
	if p.Source == v {
		return true
	}
	for _, step := range p.Steps {
		if step.Node == v {
			return true
		}
	}
	return false
}

func (p Path) extend(step Step) Path {
	steps := make([]Step, len(p.Steps), len(p.Steps)+1)
	copy(steps, p.Steps)
	return Path{Source: p.Source, Steps: append(steps, step)}
}

func (p Path) key() string {
	var builder strings.Builder
	builder.WriteString(strconv.Itoa(int(p.Source)))
	for _, step := range p.Steps {
		builder.WriteByte('|')
		if step.Inverse {
			builder.WriteByte('^')
		}
		builder.WriteString(strconv.Itoa(int(step.Predicate)))
		builder.WriteByte('>')
		builder.WriteString(strconv.Itoa(int(step.Node)))
	}
	return builder.String()
}

// FindAllPaths enumerates simple paths from source to target of at most maxHops edges, following
// edges in both directions. In-edges of undirected graphs mirror out-edges and are skipped. Paths are
// returned by ascending length.
func FindAllPaths(g *storage.Graph, source, target int32, maxHops int) []Path {
	if !g.HasVertex(source) || !g.HasVertex(target) || source == target {
		return nil
	}
	var paths []Path
	seen := mapset.NewThreadUnsafeSet[string]()
	frontier := []Path{{Source: source}}
	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []Path
		for _, path := range frontier {
			last := path.Target()
			expand := func(edges []storage.Edge, inverse bool) {
				for _, e := range edges {
					if path.contains(e.Node) {
						continue
					}
					extended := path.extend(Step{Predicate: e.Predicate, Inverse: inverse, Node: e.Node})
					if !seen.Add(extended.key()) {
						continue
					}
					if e.Node == target {
						paths = append(paths, extended)
					} else {
						next = append(next, extended)
					}
				}
			}
			expand(g.OutEdges(last), false)
			if !g.Undirected() {
				expand(g.InEdges(last), true)
			}
		}
		frontier = next
	}
	return paths
}
