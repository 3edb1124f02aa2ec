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
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/base/log"
	topk "github.com/gorse-io/lodrec/common/heap"
	"github.com/gorse-io/lodrec/config"
	"github.com/gorse-io/lodrec/dataset"
	"github.com/gorse-io/lodrec/storage"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Score is a scored resource.
type Score struct {
	Id    string  `json:"Id"`
	Score float64 `json:"Score"`
}

// Stats summarizes the indexed data.
type Stats struct {
	Paradigm   string
	Storage    string
	Resources  int
	Users      int
	Items      int
	Ratings    int
	Vertices   int
	Edges      int
	Predicates int
	Targets    int
}

type rankingEntry struct {
	once    sync.Once
	ranking *UserRanking
	err     error
}

// Recommender serves recommendations of one paradigm over an indexed data set.
type Recommender struct {
	cfg       *config.Config
	data      *dataset.Dataset
	kind      storage.Kind
	index     storage.RatingIndex
	graph     *storage.Graph
	neighbors *NeighborhoodEngine
	predictor *PredictionEngine
	reword    *Reword
	features  *FeatureExtractor
	scorer    Scorer

	rankings     *ttlcache.Cache[int32, *rankingEntry]
	rankingMutex sync.Mutex
}

type Option func(*Recommender)

// WithScorer sets the scorer of the classifier paradigm.
func WithScorer(scorer Scorer) Option {
	return func(r *Recommender) {
		r.scorer = scorer
	}
}

// NewRecommender validates the configuration, builds the storage of the paradigm and fits
// neighborhoods if the paradigm needs them.
func NewRecommender(ctx context.Context, cfg *config.Config, d *dataset.Dataset, opts ...Option) (*Recommender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	kind, err := storage.ParseKind(cfg.Recommend.GetStorage())
	if err != nil {
		return nil, errors.Trace(err)
	}
	r := &Recommender{
		cfg:    cfg,
		data:   d,
		kind:   kind,
		scorer: NewDefaultScorer(),
		rankings: ttlcache.New[int32, *rankingEntry](
			ttlcache.WithCapacity[int32, *rankingEntry](uint64(cfg.Recommend.CacheSize)),
			ttlcache.WithTTL[int32, *rankingEntry](cfg.Recommend.CacheTTL),
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	if cfg.Recommend.FeedbackType == config.FeedbackExplicit && d.Ratings.Count() > 0 && d.Ratings.IsImplicit() {
		log.Logger().Warn("explicit feedback on ratings that are all equal to 1, predictions will be constant",
			zap.Int("n_ratings", d.Ratings.Count()))
	}
	numJobs := cfg.Recommend.NumJobs
	switch kind {
	case storage.InvertedLists:
		if r.index, err = storage.BuildInvertedIndex(ctx, d.Ratings, d.Resources.Len(), numJobs); err != nil {
			return nil, errors.Trace(err)
		}
	case storage.ScaledInvertedLists:
		index, err := storage.BuildInvertedIndex(ctx, d.Ratings, d.Resources.Len(), numJobs)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if r.index, err = storage.BuildScaledInvertedIndex(ctx, index, cfg.Recommend.TopRatingBuckets, numJobs); err != nil {
			return nil, errors.Trace(err)
		}
	case storage.InMemoryGraph:
		r.graph = storage.BuildGraph(d, cfg.Graph.Undirected)
	}
	if config.NeedsGraph(cfg.Recommend.Paradigm) && r.graph == nil {
		r.graph = storage.BuildGraph(d, cfg.Graph.Undirected)
	}
	if r.graph != nil {
		r.reword = NewReword(r.graph, cfg.Graph.MaxHops)
		log.Logger().Info("build graph",
			zap.Int("n_vertices", r.graph.NumVertices()),
			zap.Int("n_edges", r.graph.NumEdges()),
			zap.Int("n_targets", len(r.graph.Targets())))
	}
	if r.index != nil {
		r.neighbors = NewNeighborhoodEngine(d.Ratings, r.index, cfg.Recommend.NeighborhoodSize, cfg.Recommend.DecimalPlaces)
		if err = r.neighbors.Fit(ctx, numJobs); err != nil {
			return nil, errors.Trace(err)
		}
		implicit := cfg.Recommend.FeedbackType == config.FeedbackImplicit
		r.predictor = NewPredictionEngine(d.Ratings, r.neighbors, implicit)
		if r.graph != nil {
			r.features = NewFeatureExtractor(d.Ratings, r.neighbors, r.graph, cfg.Graph.MaxHops)
		}
	}
	return r, nil
}

// Paradigm returns the configured paradigm.
func (r *Recommender) Paradigm() string {
	return r.cfg.Recommend.Paradigm
}

// Stats returns counts of the indexed data.
func (r *Recommender) Stats() Stats {
	stats := Stats{
		Paradigm:   r.cfg.Recommend.Paradigm,
		Storage:    r.kind.String(),
		Resources:  r.data.Resources.Len(),
		Users:      r.data.Ratings.CountUsers(),
		Items:      r.data.Ratings.CountItems(),
		Ratings:    r.data.Ratings.Count(),
		Predicates: r.data.Predicates.Count(),
	}
	if r.graph != nil {
		stats.Vertices = r.graph.NumVertices()
		stats.Edges = r.graph.NumEdges()
		stats.Targets = len(r.graph.Targets())
	}
	return stats
}

func (r *Recommender) resolve(uri string) (int32, error) {
	index := r.data.Resources.ToNumber(uri)
	if index == base.NotId {
		return base.NotId, base.NotFound(uri)
	}
	return index, nil
}

// seeds returns the items liked by a user, restricted to the source domain if one is marked.
func (r *Recommender) seeds(user int32) []int32 {
	seeds := lo.Map(r.data.Ratings.UserRatings(user), func(rating dataset.IndexedRatedRes, _ int) int32 {
		return rating.Item
	})
	if r.graph != nil && r.graph.HasSourceDomain() {
		seeds = lo.Filter(seeds, func(item int32, _ int) bool {
			return r.graph.IsSource(item)
		})
	}
	return seeds
}

// ranking returns the cached ranking of a user. Concurrent requests of the same user wait for a
// single computation, which outlives the cancellation of the request that started it. Failed
// computations are not cached.
func (r *Recommender) ranking(ctx context.Context, user int32) (*UserRanking, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	r.rankingMutex.Lock()
	item, found := r.rankings.GetOrSet(user, &rankingEntry{})
	r.rankingMutex.Unlock()
	if found {
		RankingCacheHits.Inc()
	} else {
		RankingCacheMisses.Inc()
	}
	entry := item.Value()
	entry.once.Do(func() {
		start := time.Now()
		sg := BuildUserSubgraph(r.graph, user, r.seeds(user))
		opts := NewRankingOptions(r.cfg.Graph)
		// iterations are bounded by max_iterations
		rankCtx := context.WithoutCancel(ctx)
		if r.cfg.Recommend.Paradigm == config.ParadigmKSMC {
			entry.ranking, entry.err = RankKSMC(rankCtx, sg, opts)
		} else {
			entry.ranking, entry.err = RankPRP(rankCtx, sg, opts)
		}
		if entry.err == nil {
			entry.ranking.NormalizeBy(r.graph.Targets())
			log.Logger().Debug("rank user subgraph",
				zap.Int32("user", user),
				zap.String("paradigm", r.cfg.Recommend.Paradigm),
				zap.Int("n_vertices", sg.NumVertices()),
				zap.Int("n_edges", sg.NumEdges()),
				zap.Int("iterations", entry.ranking.Iterations()),
				zap.Duration("used_time", time.Since(start)))
		}
	})
	if entry.err != nil {
		r.rankingMutex.Lock()
		cached := r.rankings.Get(user, ttlcache.WithDisableTouchOnHit[int32, *rankingEntry]())
		if cached != nil && cached.Value() == entry {
			r.rankings.Delete(user)
		}
		r.rankingMutex.Unlock()
		return nil, errors.Trace(entry.err)
	}
	return entry.ranking, nil
}

// score returns the paradigm score of an item for a user.
func (r *Recommender) score(ctx context.Context, user, item int32) (float64, error) {
	switch r.cfg.Recommend.Paradigm {
	case config.ParadigmCF:
		return r.predictor.Predict(user, item), nil
	case config.ParadigmKSMC, config.ParadigmPRP:
		ranking, err := r.ranking(ctx, user)
		if err != nil {
			return 0, errors.Trace(err)
		}
		score, err := ranking.NormalizedScore(item)
		if errors.Is(err, base.ErrComputationUnavailable) {
			log.Logger().Debug("score unavailable", zap.Error(err))
			return 0, nil
		}
		return score, errors.Trace(err)
	case config.ParadigmReword:
		seeds := r.seeds(user)
		if len(seeds) == 0 {
			return 0, nil
		}
		sum := 0.0
		for _, seed := range seeds {
			if err := ctx.Err(); err != nil {
				return 0, errors.Trace(err)
			}
			sum += r.reword.Relatedness(seed, item)
		}
		return sum / float64(len(seeds)), nil
	case config.ParadigmReachability:
		seeds := r.seeds(user)
		if len(seeds) == 0 {
			return 0, nil
		}
		reached := 0
		for _, seed := range seeds {
			r.graph.StoreReachability(seed, r.cfg.Graph.ReachabilityHops)
			if r.graph.CanReach(seed, item) {
				reached++
			}
		}
		return float64(reached) / float64(len(seeds)), nil
	case config.ParadigmClassifier:
		return r.scorer.Score(r.features.Extract(user, item)), nil
	}
	return 0, errors.NotSupportedf("paradigm %s", r.cfg.Recommend.Paradigm)
}

// candidates returns candidate items in ascending order of index.
func (r *Recommender) candidates(user int32, includeConsumed bool) ([]int32, error) {
	if r.predictor != nil {
		return r.predictor.Candidates(user, includeConsumed), nil
	}
	targets := r.graph.Targets()
	if len(targets) == 0 {
		return nil, errors.Annotate(base.ErrEmptyResultSet, "no target resource")
	}
	if includeConsumed {
		return targets, nil
	}
	return lo.Filter(targets, func(target int32, _ int) bool {
		return !r.data.Ratings.HasRated(user, target)
	}), nil
}

// PredictRating predicts the score of an item for a user.
func (r *Recommender) PredictRating(ctx context.Context, userURI, itemURI string) (float64, error) {
	user, err := r.resolve(userURI)
	if err != nil {
		return 0, err
	}
	item, err := r.resolve(itemURI)
	if err != nil {
		return 0, err
	}
	return r.score(ctx, user, item)
}

// GetRecCandidates returns candidate items of a user sorted by name.
func (r *Recommender) GetRecCandidates(ctx context.Context, userURI string) ([]string, error) {
	user, err := r.resolve(userURI)
	if err != nil {
		return nil, err
	}
	items, err := r.candidates(user, r.cfg.Recommend.IncludeConsumed)
	if err != nil {
		return nil, errors.Trace(err)
	}
	names := lo.Map(items, func(item int32, _ int) string {
		return r.data.Resources.ToName(item)
	})
	sort.Strings(names)
	return names, nil
}

// GetTopRecommendations returns k slots filled by candidates in descending order of score, ties
// broken by ascending item index. Trailing slots are nil if there are fewer than k candidates.
func (r *Recommender) GetTopRecommendations(ctx context.Context, userURI string, k int, includeConsumed bool) ([]*Score, error) {
	user, err := r.resolve(userURI)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return []*Score{}, nil
	}
	items, err := r.candidates(user, includeConsumed)
	if err != nil {
		return nil, errors.Trace(err)
	}
	filter := topk.NewTopKFilter[int32, float64](k)
	for _, item := range items {
		score, err := r.score(ctx, user, item)
		if err != nil {
			return nil, errors.Trace(err)
		}
		filter.Push(item, score)
	}
	results := make([]*Score, k)
	for i, elem := range filter.PopAll() {
		results[i] = &Score{Id: r.data.Resources.ToName(elem.Value), Score: elem.Weight}
	}
	return results, nil
}

// GetNeighbors returns similar users for neighborhood paradigms, or adjacent resources weighted
// by 1/out-degree for graph paradigms.
func (r *Recommender) GetNeighbors(ctx context.Context, uri string) ([]Score, error) {
	v, err := r.resolve(uri)
	if err != nil {
		return nil, err
	}
	if r.neighbors != nil {
		return lo.Map(r.neighbors.Neighbors(v), func(n Neighbor, _ int) Score {
			return Score{Id: r.data.Resources.ToName(n.User), Score: n.Similarity}
		}), nil
	}
	edges := r.graph.OutEdges(v)
	weights := make(map[int32]float64)
	for _, e := range edges {
		weights[e.Node] += 1 / float64(len(edges))
	}
	nodes := lo.Keys(weights)
	slices.Sort(nodes)
	return lo.Map(nodes, func(node int32, _ int) Score {
		return Score{Id: r.data.Resources.ToName(node), Score: weights[node]}
	}), nil
}

// GetResRelativeImportance measures how important node2 is relative to node1. Neighborhood paradigms
// return the user similarity, ranking paradigms the normalized score of node2 in the subgraph of user
// node1, reachability whether node2 is reachable from node1, and the others Reword relatedness.
func (r *Recommender) GetResRelativeImportance(ctx context.Context, node1, node2 string) (float64, error) {
	n1, err := r.resolve(node1)
	if err != nil {
		return 0, err
	}
	n2, err := r.resolve(node2)
	if err != nil {
		return 0, err
	}
	switch r.cfg.Recommend.Paradigm {
	case config.ParadigmCF:
		return r.neighbors.Similarity(n1, n2), nil
	case config.ParadigmKSMC, config.ParadigmPRP:
		return r.score(ctx, n1, n2)
	case config.ParadigmReachability:
		r.graph.StoreReachability(n1, r.cfg.Graph.ReachabilityHops)
		return lo.Ternary(r.graph.CanReach(n1, n2), 1.0, 0.0), nil
	}
	return r.reword.Relatedness(n1, n2), nil
}

// Similarity returns the cosine similarity between two users.
func (r *Recommender) Similarity(_ context.Context, user1, user2 string) (float64, error) {
	u1, err := r.resolve(user1)
	if err != nil {
		return 0, err
	}
	u2, err := r.resolve(user2)
	if err != nil {
		return 0, err
	}
	return sparseSimilarity(r.data.Ratings, u1, u2, r.cfg.Recommend.DecimalPlaces), nil
}
