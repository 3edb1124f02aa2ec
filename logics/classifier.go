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
	"github.com/gorse-io/lodrec/dataset"
	"github.com/gorse-io/lodrec/storage"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	FeatureSimilarUserPreference = iota
	FeatureAveragePathLength
	FeatureLikeCount
	NumFeatures
)

// Scorer scores a feature vector produced by FeatureExtractor. Higher is better.
type Scorer interface {
	Score(features []float64) float64
}

// LinearScorer is a weighted sum of features plus a bias.
type LinearScorer struct {
	Weights []float64
	Bias    float64
}

// NewDefaultScorer prefers items liked by similar users, close to liked items and popular.
func NewDefaultScorer() *LinearScorer {
	return &LinearScorer{Weights: []float64{1, -0.1, 0.01}}
}

func (s *LinearScorer) Score(features []float64) float64 {
	n := min(len(features), len(s.Weights))
	return floats.Dot(s.Weights[:n], features[:n]) + s.Bias
}

// FeatureExtractor builds [similar-user preference, average path length, like count] features
// of user-item pairs.
type FeatureExtractor struct {
	ratings   *dataset.RatingStore
	neighbors *NeighborhoodEngine
	graph     *storage.Graph
	maxHops   int
}

func NewFeatureExtractor(ratings *dataset.RatingStore, neighbors *NeighborhoodEngine, g *storage.Graph, maxHops int) *FeatureExtractor {
	return &FeatureExtractor{ratings: ratings, neighbors: neighbors, graph: g, maxHops: maxHops}
}

// Extract returns the features of a user-item pair.
//   - similar-user preference: similarity mass of neighbors who rated the item over the total mass.
//   - average path length: mean length of the shortest path from each liked item to the item, ignoring
//     liked items without a path within the hop bound.
//   - like count: number of users who rated the item.
func (f *FeatureExtractor) Extract(user, item int32) []float64 {
	features := make([]float64, NumFeatures)
	var total, rated float64
	for _, neighbor := range f.neighbors.Neighbors(user) {
		total += neighbor.Similarity
		if f.ratings.HasRated(neighbor.User, item) {
			rated += neighbor.Similarity
		}
	}
	if total != 0 {
		features[FeatureSimilarUserPreference] = rated / total
	}
	var lengths []float64
	for _, r := range f.ratings.UserRatings(user) {
		if paths := FindAllPaths(f.graph, r.Item, item, f.maxHops); len(paths) > 0 {
			lengths = append(lengths, float64(paths[0].Len()))
		}
	}
	if len(lengths) > 0 {
		features[FeatureAveragePathLength] = stat.Mean(lengths, nil)
	}
	features[FeatureLikeCount] = float64(len(f.ratings.ItemUsers(item)))
	return features
}
