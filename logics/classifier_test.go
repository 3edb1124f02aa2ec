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
	"testing"

	"github.com/gorse-io/lodrec/storage"
	"github.com/stretchr/testify/assert"
)

func TestLinearScorer(t *testing.T) {
	scorer := NewDefaultScorer()
	assert.InDelta(t, 0.5-0.2+0.03, scorer.Score([]float64{0.5, 2, 3}), 1e-12)
	scorer = &LinearScorer{Weights: []float64{2, 1}, Bias: 1}
	assert.Equal(t, 3.0, scorer.Score([]float64{1}))
	assert.Equal(t, 4.0, scorer.Score([]float64{1, 1, 100}))
}

func TestFeatureExtractor(t *testing.T) {
	d := implicitDataset()
	d.AddTriple("Item1", "genre", "Drama")
	d.AddTriple("Item3", "genre", "Drama")
	engine := newTestNeighborhoodEngine(t, d, 2)
	extractor := NewFeatureExtractor(d.Ratings, engine, storage.BuildGraph(d, false), 3)
	alice := d.Resources.ToNumber("Alice")

	sim1, sim3 := math.Sqrt(2.0/3), 0.5
	features := extractor.Extract(alice, d.Resources.ToNumber("Item3"))
	assert.Len(t, features, NumFeatures)
	assert.InDelta(t, sim1/(sim1+sim3), features[FeatureSimilarUserPreference], 1e-5)
	assert.Equal(t, 2.0, features[FeatureAveragePathLength])
	assert.Equal(t, 2.0, features[FeatureLikeCount])

	features = extractor.Extract(alice, d.Resources.ToNumber("Item4"))
	assert.InDelta(t, sim3/(sim1+sim3), features[FeatureSimilarUserPreference], 1e-5)
	assert.Zero(t, features[FeatureAveragePathLength])
	assert.Equal(t, 2.0, features[FeatureLikeCount])

	// a user without neighbors has no preference signal
	features = extractor.Extract(d.Resources.ToNumber("Drama"), d.Resources.ToNumber("Item4"))
	assert.Zero(t, features[FeatureSimilarUserPreference])
}
