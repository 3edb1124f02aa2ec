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
	"context"

	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/config"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/floats"
)

// RankingOptions configures power iterations over a user subgraph.
type RankingOptions struct {
	PriorDistribution string
	EdgeDistribution  string
	Steps             int
	Damping           float64
	MaxIterations     int
	Tolerance         float64
}

func NewRankingOptions(cfg config.GraphConfig) RankingOptions {
	return RankingOptions{
		PriorDistribution: cfg.PriorDistribution,
		EdgeDistribution:  cfg.EdgeDistribution,
		Steps:             cfg.MarkovSteps,
		Damping:           cfg.Damping,
		MaxIterations:     cfg.MaxIterations,
		Tolerance:         cfg.Tolerance,
	}
}

// UserRanking holds the scores of every vertex of a user subgraph.
type UserRanking struct {
	subgraph   *UserSubgraph
	scores     []float64
	iterations int
	maxTarget  float64
}

// prior returns the initial distribution. The liked-items prior puts equal mass on every seed,
// the uniform prior on every vertex.
func prior(sg *UserSubgraph, distribution string) []float64 {
	x := make([]float64, sg.NumVertices())
	if distribution == config.DistributionLikedItems && len(sg.Seeds) > 0 {
		for _, seed := range sg.Seeds {
			x[sg.local[seed]] = 1 / float64(len(sg.Seeds))
		}
	} else {
		floats.AddConst(1/float64(len(x)), x)
	}
	return x
}

// propagate computes y = x·P. With outgoing-sum-one each edge weighs 1/out-degree of its source,
// with uniform each edge weighs 1/|E|.
func propagate(sg *UserSubgraph, distribution string, x, y []float64) {
	for i := range y {
		y[i] = 0
	}
	uniform := 1 / float64(sg.numEdges)
	for i, edges := range sg.out {
		if x[i] == 0 || len(edges) == 0 {
			continue
		}
		weight := uniform
		if distribution == config.DistributionOutgoingSumOne {
			weight = 1 / float64(len(edges))
		}
		for _, e := range edges {
			y[e.Node] += x[i] * weight
		}
	}
}

// RankKSMC computes K-step Markov centrality: the sum of the distributions after each of the
// first min(steps, max iterations) steps of a random walk starting from the prior.
func RankKSMC(ctx context.Context, sg *UserSubgraph, opts RankingOptions) (*UserRanking, error) {
	x := prior(sg, opts.PriorDistribution)
	y := make([]float64, len(x))
	scores := make([]float64, len(x))
	steps := min(opts.Steps, opts.MaxIterations)
	ranking := &UserRanking{subgraph: sg, scores: scores}
	if sg.numEdges == 0 {
		return ranking, nil
	}
	for t := 0; t < steps; t++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		propagate(sg, opts.EdgeDistribution, x, y)
		x, y = y, x
		floats.Add(scores, x)
		ranking.iterations++
	}
	RankingIterations.WithLabelValues(config.ParadigmKSMC).Observe(float64(ranking.iterations))
	return ranking, nil
}

// RankPRP computes PageRank with priors: x ← (1−α)·x·P + α·prior until the L1 change is below
// the tolerance or the iteration budget is exhausted.
func RankPRP(ctx context.Context, sg *UserSubgraph, opts RankingOptions) (*UserRanking, error) {
	p := prior(sg, opts.PriorDistribution)
	x := make([]float64, len(p))
	copy(x, p)
	y := make([]float64, len(p))
	ranking := &UserRanking{subgraph: sg}
	if sg.numEdges > 0 {
		for ranking.iterations < opts.MaxIterations {
			if err := ctx.Err(); err != nil {
				return nil, errors.Trace(err)
			}
			propagate(sg, opts.EdgeDistribution, x, y)
			floats.Scale(1-opts.Damping, y)
			floats.AddScaled(y, opts.Damping, p)
			delta := floats.Distance(x, y, 1)
			x, y = y, x
			ranking.iterations++
			if delta < opts.Tolerance {
				break
			}
		}
	}
	ranking.scores = x
	RankingIterations.WithLabelValues(config.ParadigmPRP).Observe(float64(ranking.iterations))
	return ranking, nil
}

// Iterations returns the number of performed iterations.
func (r *UserRanking) Iterations() int {
	return r.iterations
}

// Score returns the raw score of a resource.
func (r *UserRanking) Score(v int32) (float64, error) {
	i, ok := r.subgraph.Local(v)
	if !ok {
		return 0, errors.Annotatef(base.ErrComputationUnavailable, "resource %d is not in the subgraph of user %d", v, r.subgraph.User)
	}
	return r.scores[i], nil
}

// NormalizeBy sets the normalizer to the maximum score among targets present in the subgraph.
func (r *UserRanking) NormalizeBy(targets []int32) {
	r.maxTarget = 0
	for _, target := range targets {
		if i, ok := r.subgraph.Local(target); ok && r.scores[i] > r.maxTarget {
			r.maxTarget = r.scores[i]
		}
	}
}

// NormalizedScore returns the score of a resource divided by the maximum target score. Zero is
// returned if no target has a positive score.
func (r *UserRanking) NormalizedScore(v int32) (float64, error) {
	score, err := r.Score(v)
	if err != nil {
		return 0, err
	}
	if r.maxTarget == 0 {
		return 0, nil
	}
	return score / r.maxTarget, nil
}
