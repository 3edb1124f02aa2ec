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
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	topk "github.com/gorse-io/lodrec/common/heap"
	"github.com/gorse-io/lodrec/dataset"
)

// PredictionEngine predicts ratings from the neighborhoods of users.
type PredictionEngine struct {
	ratings   *dataset.RatingStore
	neighbors *NeighborhoodEngine
	implicit  bool
}

// NewPredictionEngine creates a prediction engine. Implicit feedback predicts the similarity weighted
// sum of neighbor ratings, explicit feedback predicts the mean-centered weighted average.
func NewPredictionEngine(ratings *dataset.RatingStore, neighbors *NeighborhoodEngine, implicit bool) *PredictionEngine {
	return &PredictionEngine{ratings: ratings, neighbors: neighbors, implicit: implicit}
}

// Predict returns the predicted rating of user on item, or 0 if no neighbor rated the item.
//
//	explicit: avg(u) + Σ sim(u,v)·(r(v,i) − avg(v)) / Σ |sim(u,v)|
//	implicit: Σ sim(u,v)·r(v,i)
func (p *PredictionEngine) Predict(user, item int32) float64 {
	var weighted, normalizer float64
	rated := false
	for _, neighbor := range p.neighbors.Neighbors(user) {
		rating, ok := p.ratings.Rating(neighbor.User, item)
		if !ok {
			continue
		}
		rated = true
		if p.implicit {
			weighted += neighbor.Similarity * rating
		} else {
			weighted += neighbor.Similarity * (rating - p.ratings.AverageRating(neighbor.User))
			normalizer += math.Abs(neighbor.Similarity)
		}
	}
	if !rated {
		return 0
	}
	if p.implicit {
		return weighted
	}
	if normalizer == 0 {
		return p.ratings.AverageRating(user)
	}
	return p.ratings.AverageRating(user) + weighted/normalizer
}

// Candidates returns items rated by the neighbors of user in ascending order. Items rated by
// the user are excluded unless includeConsumed is set.
func (p *PredictionEngine) Candidates(user int32, includeConsumed bool) []int32 {
	candidates := mapset.NewThreadUnsafeSet[int32]()
	for _, neighbor := range p.neighbors.Neighbors(user) {
		for _, r := range p.ratings.UserRatings(neighbor.User) {
			if includeConsumed || !p.ratings.HasRated(user, r.Item) {
				candidates.Add(r.Item)
			}
		}
	}
	items := candidates.ToSlice()
	slices.Sort(items)
	return items
}

// TopRecommendations returns at most k candidates with the highest predictions. Ties are broken
// by ascending item index.
func (p *PredictionEngine) TopRecommendations(user int32, k int, includeConsumed bool) []topk.Elem[int32, float64] {
	filter := topk.NewTopKFilter[int32, float64](k)
	for _, item := range p.Candidates(user, includeConsumed) {
		filter.Push(item, p.Predict(user, item))
	}
	return filter.PopAll()
}
