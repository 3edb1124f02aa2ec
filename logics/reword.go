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
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/common/sparse"
	"github.com/gorse-io/lodrec/storage"
	"gonum.org/v1/gonum/stat"
)

// Reword measures relatedness between resources by the informativeness of predicates around them
// and along the most informative path connecting them.
type Reword struct {
	graph   *storage.Graph
	maxHops int
}

func NewReword(g *storage.Graph, maxHops int) *Reword {
	return &Reword{graph: g, maxHops: maxHops}
}

// ITF returns the inverse triple frequency ln(|triples| / |triples labeled with predicate|).
func (r *Reword) ITF(predicate int32) float64 {
	count := r.graph.PredicateCount(predicate)
	if count == 0 {
		return 0
	}
	return math.Log(float64(r.graph.TotalTriples()) / float64(count))
}

// PFITF returns PF × ITF where PF is the fraction of the incoming (inverse) or outgoing edges
// of node labeled with predicate.
func (r *Reword) PFITF(node, predicate int32, inverse bool) float64 {
	edges := r.graph.OutEdges(node)
	if inverse {
		edges = r.graph.InEdges(node)
	}
	if len(edges) == 0 {
		return 0
	}
	count := 0
	for _, e := range edges {
		if e.Predicate == predicate {
			count++
		}
	}
	return float64(count) / float64(len(edges)) * r.ITF(predicate)
}

// EdgeInformativeness returns the mean of the outgoing PF-ITF at the subject and the incoming PF-ITF
// at the object of the traversed edge.
func (r *Reword) EdgeInformativeness(from int32, step Step) float64 {
	subject, object := from, step.Node
	if step.Inverse {
		subject, object = object, subject
	}
	return (r.PFITF(subject, step.Predicate, false) + r.PFITF(object, step.Predicate, true)) / 2
}

// PathInformativeness returns the mean informativeness of the edges of a path.
func (r *Reword) PathInformativeness(p Path) float64 {
	if p.Len() == 0 {
		return 0
	}
	values := make([]float64, p.Len())
	from := p.Source
	for i, step := range p.Steps {
		values[i] = r.EdgeInformativeness(from, step)
		from = step.Node
	}
	return stat.Mean(values, nil)
}

// MostInformativePath returns the first path with the highest informativeness within the hop bound.
func (r *Reword) MostInformativePath(n1, n2 int32) (Path, float64, bool) {
	var (
		best      Path
		bestValue float64
		found     bool
	)
	for _, p := range FindAllPaths(r.graph, n1, n2, r.maxHops) {
		if value := r.PathInformativeness(p); !found || value > bestValue {
			best, bestValue, found = p, value, true
		}
	}
	return best, bestValue, found
}

func (r *Reword) predicateVector(node int32, inverse bool) map[int32]float64 {
	edges := r.graph.OutEdges(node)
	if inverse {
		edges = r.graph.InEdges(node)
	}
	vec := make(map[int32]float64)
	for _, e := range edges {
		if e.Predicate == base.NotId {
			continue
		}
		if _, exist := vec[e.Predicate]; !exist {
			vec[e.Predicate] = r.PFITF(node, e.Predicate, inverse)
		}
	}
	return vec
}

// Relatedness compares the incoming and outgoing PF-ITF vectors of two resources after boosting the
// predicates of the most informative path between them.
//
//	relatedness = (cos(in1, in2) + cos(out1, out2)) / 2
func (r *Reword) Relatedness(n1, n2 int32) float64 {
	in1, out1 := r.predicateVector(n1, true), r.predicateVector(n1, false)
	in2, out2 := r.predicateVector(n2, true), r.predicateVector(n2, false)
	if path, value, ok := r.MostInformativePath(n1, n2); ok {
		predicates := mapset.NewThreadUnsafeSet[int32]()
		for _, step := range path.Steps {
			if step.Predicate != base.NotId {
				predicates.Add(step.Predicate)
			}
		}
		for predicate := range predicates.Iter() {
			for _, vec := range []map[int32]float64{in1, out1, in2, out2} {
				vec[predicate] += value
			}
		}
	}
	vectors := make([]*sparse.Vector, 4)
	for i, m := range []map[int32]float64{in1, in2, out1, out2} {
		vectors[i] = sparse.FromMap(m)
		vectors[i].Normalize()
	}
	return (sparse.Cosine(vectors[0], vectors[1]) + sparse.Cosine(vectors[2], vectors[3])) / 2
}
