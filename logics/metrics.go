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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FitNeighborsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lodrec",
		Subsystem: "logics",
		Name:      "fit_neighbors_seconds",
	})
	BuildSubgraphSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lodrec",
		Subsystem: "logics",
		Name:      "build_subgraph_seconds",
	})
	RankingIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lodrec",
		Subsystem: "logics",
		Name:      "ranking_iterations",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"algorithm"})
	RankingCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lodrec",
		Subsystem: "logics",
		Name:      "ranking_cache_hits_total",
	})
	RankingCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lodrec",
		Subsystem: "logics",
		Name:      "ranking_cache_misses_total",
	})
)
