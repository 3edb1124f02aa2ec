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
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/base/log"
	"github.com/gorse-io/lodrec/config"
	"github.com/gorse-io/lodrec/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// graphDataset contains a user liking a and b, with a and b linked to targets.
//
//	a -p-> t1, b -p-> t1, b -q-> t2, t3 is isolated
func graphDataset() *dataset.Dataset {
	d := dataset.NewDataset()
	d.AddRating("u", "a", 1)
	d.AddRating("u", "b", 1)
	d.AddTriple("a", "p", "t1")
	d.AddTriple("b", "p", "t1")
	d.AddTriple("b", "q", "t2")
	d.SetDomains(nil, []string{"t1", "t2", "t3"})
	return d
}

type RecommenderTestSuite struct {
	suite.Suite
	cfg *config.Config
}

func (suite *RecommenderTestSuite) SetupTest() {
	suite.cfg = config.GetDefaultConfig()
	suite.cfg.Recommend.NumJobs = 2
}

func (suite *RecommenderTestSuite) newRecommender(d *dataset.Dataset, opts ...Option) *Recommender {
	r, err := NewRecommender(context.Background(), suite.cfg, d, opts...)
	suite.Require().NoError(err)
	return r
}

func (suite *RecommenderTestSuite) assertScores(expected []*Score, actual []*Score) {
	suite.Require().Len(actual, len(expected))
	for i := range expected {
		if expected[i] == nil {
			suite.Nil(actual[i])
			continue
		}
		suite.Require().NotNil(actual[i])
		suite.Equal(expected[i].Id, actual[i].Id)
		suite.InDelta(expected[i].Score, actual[i].Score, 1e-4)
	}
}

func (suite *RecommenderTestSuite) TestCollaborativeFiltering() {
	suite.cfg.Recommend.FeedbackType = config.FeedbackExplicit
	suite.cfg.Recommend.NeighborhoodSize = 2
	for _, kind := range []string{config.StorageInvertedLists, config.StorageScaledInvertedLists} {
		suite.cfg.Recommend.Storage = kind
		r := suite.newRecommender(explicitDataset())
		ctx := context.Background()

		scores, err := r.GetTopRecommendations(ctx, "Alice", 5, true)
		suite.NoError(err)
		suite.assertScores([]*Score{
			{"Item5", 4.8969}, {"Item1", 4.4020}, {"Item4", 3.9071}, {"Item3", 3.8969}, {"Item2", 2.8969},
		}, scores)

		scores, err = r.GetTopRecommendations(ctx, "Alice", 3, false)
		suite.NoError(err)
		suite.assertScores([]*Score{{"Item5", 4.8969}, nil, nil}, scores)

		score, err := r.PredictRating(ctx, "Alice", "Item5")
		suite.NoError(err)
		suite.InDelta(4.8969, score, 1e-4)

		candidates, err := r.GetRecCandidates(ctx, "Alice")
		suite.NoError(err)
		suite.Equal([]string{"Item5"}, candidates)

		neighbors, err := r.GetNeighbors(ctx, "Alice")
		suite.NoError(err)
		suite.Len(neighbors, 2)
		suite.Equal("User1", neighbors[0].Id)
		suite.Equal("User2", neighbors[1].Id)

		importance, err := r.GetResRelativeImportance(ctx, "Alice", "User1")
		suite.NoError(err)
		suite.Equal(neighbors[0].Score, importance)
		similarity, err := r.Similarity(ctx, "Alice", "User1")
		suite.NoError(err)
		suite.Equal(importance, similarity)
	}
}

func (suite *RecommenderTestSuite) TestCollaborativeFiltering_Implicit() {
	suite.cfg.Recommend.FeedbackType = config.FeedbackImplicit
	r := suite.newRecommender(implicitDataset())
	scores, err := r.GetTopRecommendations(context.Background(), "Alice", 3, false)
	suite.NoError(err)
	suite.assertScores([]*Score{{"Item3", 0.816497}, {"Item4", 0.5}, nil}, scores)
}

func (suite *RecommenderTestSuite) TestNotFound() {
	r := suite.newRecommender(implicitDataset())
	ctx := context.Background()
	_, err := r.GetTopRecommendations(ctx, "Nobody", 3, false)
	suite.True(errors.Is(err, errors.NotFound))
	_, err = r.PredictRating(ctx, "Alice", "Nothing")
	suite.True(errors.Is(err, errors.NotFound))
	_, err = r.GetNeighbors(ctx, "Nobody")
	suite.True(errors.Is(err, errors.NotFound))
	_, err = r.GetRecCandidates(ctx, "Nobody")
	suite.True(errors.Is(err, errors.NotFound))
	_, err = r.GetResRelativeImportance(ctx, "Alice", "Nobody")
	suite.True(errors.Is(err, errors.NotFound))
	_, err = r.Similarity(ctx, "Nobody", "Alice")
	suite.True(errors.Is(err, errors.NotFound))

	scores, err := r.GetTopRecommendations(ctx, "Alice", 0, false)
	suite.NoError(err)
	suite.Empty(scores)
}

func (suite *RecommenderTestSuite) TestKSMC() {
	suite.cfg.Recommend.Paradigm = config.ParadigmKSMC
	r := suite.newRecommender(graphDataset())
	ctx := context.Background()
	scores, err := r.GetTopRecommendations(ctx, "u", 4, false)
	suite.NoError(err)
	suite.assertScores([]*Score{{"t1", 1}, {"t2", 1.0 / 3}, {"t3", 0}, nil}, scores)
	suite.Equal(1.0, scores[0].Score)

	candidates, err := r.GetRecCandidates(ctx, "u")
	suite.NoError(err)
	suite.Equal([]string{"t1", "t2", "t3"}, candidates)

	importance, err := r.GetResRelativeImportance(ctx, "u", "t2")
	suite.NoError(err)
	suite.InDelta(1.0/3, importance, 1e-12)
	importance, err = r.GetResRelativeImportance(ctx, "u", "t3")
	suite.NoError(err)
	suite.Zero(importance)

	neighbors, err := r.GetNeighbors(ctx, "b")
	suite.NoError(err)
	suite.Equal([]Score{{"t1", 0.5}, {"t2", 0.5}}, neighbors)
	neighbors, err = r.GetNeighbors(ctx, "u")
	suite.NoError(err)
	suite.Empty(neighbors)
}

func (suite *RecommenderTestSuite) TestPRP() {
	suite.cfg.Recommend.Paradigm = config.ParadigmPRP
	r := suite.newRecommender(graphDataset())
	scores, err := r.GetTopRecommendations(context.Background(), "u", 3, false)
	suite.NoError(err)
	suite.Require().Len(scores, 3)
	suite.Equal("t1", scores[0].Id)
	suite.Equal(1.0, scores[0].Score)
	suite.Equal("t2", scores[1].Id)
	suite.Less(scores[1].Score, 1.0)
	suite.Greater(scores[1].Score, 0.0)
	suite.Equal("t3", scores[2].Id)
	suite.Zero(scores[2].Score)
}

func (suite *RecommenderTestSuite) TestRankingCache() {
	suite.cfg.Recommend.Paradigm = config.ParadigmPRP
	r := suite.newRecommender(graphDataset())
	expected, err := r.GetTopRecommendations(context.Background(), "u", 3, false)
	suite.NoError(err)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			scores, err := r.GetTopRecommendations(context.Background(), "u", 3, false)
			suite.NoError(err)
			suite.Equal(expected, scores)
		})
	}
	wg.Wait()
	suite.Equal(1, r.rankings.Len())

	// a canceled computation is not cached
	r = suite.newRecommender(graphDataset())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.GetTopRecommendations(ctx, "u", 3, false)
	suite.ErrorIs(err, context.Canceled)
	suite.Zero(r.rankings.Len())
	scores, err := r.GetTopRecommendations(context.Background(), "u", 3, false)
	suite.NoError(err)
	suite.Equal(expected, scores)
}

// expiringContext is canceled once its first Err check has passed.
type expiringContext struct {
	context.Context
	checks atomic.Int32
}

func (ctx *expiringContext) Err() error {
	if ctx.checks.Add(1) > 1 {
		return context.Canceled
	}
	return nil
}

func (suite *RecommenderTestSuite) TestRankingCache_Canceled() {
	suite.cfg.Recommend.Paradigm = config.ParadigmKSMC
	r := suite.newRecommender(graphDataset())
	user := r.data.Resources.ToNumber("u")
	expected, err := r.ranking(context.Background(), user)
	suite.NoError(err)

	// a ranking started by a request canceled afterwards is still completed and shared
	r = suite.newRecommender(graphDataset())
	ranking, err := r.ranking(&expiringContext{Context: context.Background()}, user)
	suite.NoError(err)
	suite.Equal(expected.scores, ranking.scores)
	suite.Equal(1, r.rankings.Len())
	cached, err := r.ranking(context.Background(), user)
	suite.NoError(err)
	suite.Same(ranking, cached)
}

func (suite *RecommenderTestSuite) TestRankingCache_Users() {
	suite.cfg.Recommend.Paradigm = config.ParadigmPRP
	d := graphDataset()
	d.AddRating("v", "b", 1)
	users := []string{"u", "v"}
	expected := make(map[string][]*Score)
	for _, user := range users {
		r := suite.newRecommender(d)
		scores, err := r.GetTopRecommendations(context.Background(), user, 3, true)
		suite.NoError(err)
		expected[user] = scores
	}
	suite.NotEqual(expected["u"], expected["v"])

	r := suite.newRecommender(d)
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		user := users[i%len(users)]
		wg.Go(func() {
			scores, err := r.GetTopRecommendations(context.Background(), user, 3, true)
			suite.NoError(err)
			suite.Equal(expected[user], scores)
		})
		wg.Go(func() {
			_, err := r.GetTopRecommendations(canceled, user, 3, true)
			suite.ErrorIs(err, context.Canceled)
		})
	}
	wg.Wait()
	suite.Equal(2, r.rankings.Len())
}

func (suite *RecommenderTestSuite) TestSourceDomain() {
	suite.cfg.Recommend.Paradigm = config.ParadigmReachability
	d := graphDataset()
	d.SetDomains([]string{"a"}, []string{"t1", "t2", "t3"})
	r := suite.newRecommender(d)
	scores, err := r.GetTopRecommendations(context.Background(), "u", 3, false)
	suite.NoError(err)
	suite.assertScores([]*Score{{"t1", 1}, {"t2", 0}, {"t3", 0}}, scores)
}

func (suite *RecommenderTestSuite) TestExplicitFeedbackWarning() {
	core, logs := observer.New(zap.WarnLevel)
	restore := log.ReplaceLogger(zap.New(core))
	defer restore()

	suite.cfg.Recommend.FeedbackType = config.FeedbackExplicit
	suite.newRecommender(graphDataset())
	suite.Equal(1, logs.FilterField(zap.Int("n_ratings", 2)).Len())

	d := graphDataset()
	d.AddRating("v", "a", 3)
	suite.newRecommender(d)
	suite.Equal(1, logs.Len())
}

func (suite *RecommenderTestSuite) TestReachability() {
	suite.cfg.Recommend.Paradigm = config.ParadigmReachability
	r := suite.newRecommender(graphDataset())
	ctx := context.Background()
	scores, err := r.GetTopRecommendations(ctx, "u", 3, false)
	suite.NoError(err)
	suite.assertScores([]*Score{{"t1", 1}, {"t2", 0.5}, {"t3", 0}}, scores)

	importance, err := r.GetResRelativeImportance(ctx, "a", "t1")
	suite.NoError(err)
	suite.Equal(1.0, importance)
	importance, err = r.GetResRelativeImportance(ctx, "a", "t2")
	suite.NoError(err)
	suite.Zero(importance)
}

func (suite *RecommenderTestSuite) TestReword() {
	suite.cfg.Recommend.Paradigm = config.ParadigmReword
	d := graphDataset()
	r := suite.newRecommender(d)
	ctx := context.Background()
	scores, err := r.GetTopRecommendations(ctx, "u", 3, false)
	suite.NoError(err)
	suite.Require().Len(scores, 3)
	for _, score := range scores {
		suite.Require().NotNil(score)
		suite.GreaterOrEqual(score.Score, 0.0)
		suite.LessOrEqual(score.Score, 1+1e-9)
	}

	a, t1 := d.Resources.ToNumber("a"), d.Resources.ToNumber("t1")
	b := d.Resources.ToNumber("b")
	score, err := r.PredictRating(ctx, "u", "t1")
	suite.NoError(err)
	suite.InDelta((r.reword.Relatedness(a, t1)+r.reword.Relatedness(b, t1))/2, score, 1e-12)
	importance, err := r.GetResRelativeImportance(ctx, "a", "t1")
	suite.NoError(err)
	suite.Equal(r.reword.Relatedness(a, t1), importance)

	// users without likes have no relatedness signal
	score, err = r.PredictRating(ctx, "t1", "t2")
	suite.NoError(err)
	suite.Zero(score)
}

type preferenceScorer struct{}

func (preferenceScorer) Score(features []float64) float64 {
	return features[FeatureSimilarUserPreference]
}

func (suite *RecommenderTestSuite) TestClassifier() {
	suite.cfg.Recommend.Paradigm = config.ParadigmClassifier
	d := implicitDataset()
	d.AddTriple("Item1", "genre", "Drama")
	d.AddTriple("Item3", "genre", "Drama")
	r := suite.newRecommender(d, WithScorer(preferenceScorer{}))
	scores, err := r.GetTopRecommendations(context.Background(), "Alice", 2, false)
	suite.NoError(err)
	suite.Require().Len(scores, 2)
	suite.Equal("Item3", scores[0].Id)
	suite.Equal("Item4", scores[1].Id)
	suite.Greater(scores[0].Score, scores[1].Score)

	// the default scorer penalizes long paths
	r = suite.newRecommender(d)
	score, err := r.PredictRating(context.Background(), "Alice", "Item3")
	suite.NoError(err)
	suite.InDelta(NewDefaultScorer().Score(r.features.Extract(d.Resources.ToNumber("Alice"), d.Resources.ToNumber("Item3"))), score, 1e-12)
}

func (suite *RecommenderTestSuite) TestNoTargets() {
	suite.cfg.Recommend.Paradigm = config.ParadigmKSMC
	d := graphDataset()
	d.TargetDomain = nil
	r := suite.newRecommender(d)
	_, err := r.GetTopRecommendations(context.Background(), "u", 3, false)
	suite.True(errors.Is(err, base.ErrEmptyResultSet))
	_, err = r.GetRecCandidates(context.Background(), "u")
	suite.True(errors.Is(err, base.ErrEmptyResultSet))
}

func (suite *RecommenderTestSuite) TestStats() {
	suite.cfg.Recommend.Paradigm = config.ParadigmKSMC
	r := suite.newRecommender(graphDataset())
	suite.Equal(Stats{
		Paradigm:   config.ParadigmKSMC,
		Storage:    config.StorageInMemoryGraph,
		Resources:  6,
		Users:      1,
		Items:      2,
		Ratings:    2,
		Vertices:   6,
		Edges:      3,
		Predicates: 2,
		Targets:    3,
	}, r.Stats())
	suite.Equal(config.ParadigmKSMC, r.Paradigm())
}

func (suite *RecommenderTestSuite) TestInvalidConfig() {
	suite.cfg.Recommend.Storage = config.StorageInMemoryGraph
	_, err := NewRecommender(context.Background(), suite.cfg, implicitDataset())
	suite.True(errors.Is(err, errors.NotValid))

	suite.SetupTest()
	suite.cfg.Recommend.NeighborhoodSize = 0
	_, err = NewRecommender(context.Background(), suite.cfg, implicitDataset())
	suite.True(errors.Is(err, errors.NotValid))
}

func TestRecommender(t *testing.T) {
	suite.Run(t, new(RecommenderTestSuite))
}
