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

package sparse

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Vector is a sparse vector of float64 values addressed by int32 indices. Indices
// must be unique. Similarity functions sort vectors by indices before merging.
type Vector struct {
	Indices []int32
	Values  []float64
	sorted  bool
}

// NewVector creates an empty Vector.
func NewVector(capacity int) *Vector {
	return &Vector{
		Indices: make([]int32, 0, capacity),
		Values:  make([]float64, 0, capacity),
		sorted:  true,
	}
}

// FromMap creates a sorted Vector from index-value pairs.
func FromMap(m map[int32]float64) *Vector {
	vec := NewVector(len(m))
	for index, value := range m {
		vec.Add(index, value)
	}
	vec.SortIndex()
	return vec
}

// Add a new item.
func (vec *Vector) Add(index int32, value float64) {
	if n := len(vec.Indices); n > 0 && vec.Indices[n-1] >= index {
		vec.sorted = false
	}
	vec.Indices = append(vec.Indices, index)
	vec.Values = append(vec.Values, value)
}

// Len returns the number of items.
func (vec *Vector) Len() int {
	return len(vec.Values)
}

// Less returns true if the index of i-th item is less than the index of j-th item.
func (vec *Vector) Less(i, j int) bool {
	return vec.Indices[i] < vec.Indices[j]
}

// Swap two items.
func (vec *Vector) Swap(i, j int) {
	vec.Indices[i], vec.Indices[j] = vec.Indices[j], vec.Indices[i]
	vec.Values[i], vec.Values[j] = vec.Values[j], vec.Values[i]
}

// SortIndex sorts items by indices.
func (vec *Vector) SortIndex() {
	if !vec.sorted {
		sort.Sort(vec)
		vec.sorted = true
	}
}

// Get returns the value at index, or zero if the index is absent.
func (vec *Vector) Get(index int32) float64 {
	vec.SortIndex()
	i := sort.Search(len(vec.Indices), func(i int) bool { return vec.Indices[i] >= index })
	if i < len(vec.Indices) && vec.Indices[i] == index {
		return vec.Values[i]
	}
	return 0
}

// Norm returns the L2 norm.
func (vec *Vector) Norm() float64 {
	if vec.Len() == 0 {
		return 0
	}
	return floats.Norm(vec.Values, 2)
}

// Normalize scales the vector to unit L2 norm. Zero vectors are left unchanged.
func (vec *Vector) Normalize() {
	if norm := vec.Norm(); norm > 0 {
		floats.Scale(1/norm, vec.Values)
	}
}

// ForIntersection iterates items in the intersection of two vectors. The method sorts two vectors
// by indices first, then find common indices in linear time.
func (vec *Vector) ForIntersection(other *Vector, f func(index int32, a, b float64)) {
	vec.SortIndex()
	other.SortIndex()
	i, j := 0, 0
	for i < vec.Len() && j < other.Len() {
		if vec.Indices[i] == other.Indices[j] {
			f(vec.Indices[i], vec.Values[i], other.Values[j])
			i++
			j++
		} else if vec.Indices[i] < other.Indices[j] {
			i++
		} else {
			j++
		}
	}
}

// Dot computes the dot product of two sparse vectors.
func Dot(a, b *Vector) float64 {
	sum := 0.0
	a.ForIntersection(b, func(_ int32, x, y float64) {
		sum += x * y
	})
	return sum
}

// Cosine computes the cosine similarity between two sparse vectors. Zero is returned
// if either vector is zero.
func Cosine(a, b *Vector) float64 {
	normA, normB := a.Norm(), b.Norm()
	if normA == 0 || normB == 0 {
		return 0
	}
	return Dot(a, b) / (normA * normB)
}

// Round rounds x to the given number of decimal places. Negative places leave x unchanged.
func Round(x float64, places int) float64 {
	if places < 0 {
		return x
	}
	scale := math.Pow10(places)
	return math.Round(x*scale) / scale
}
