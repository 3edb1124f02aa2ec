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

package storage

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/gorse-io/lodrec/base/log"
	"github.com/gorse-io/lodrec/common/parallel"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

type bucket struct {
	rating float64
	list   InvertedList
}

type scaledLists struct {
	// sorted by rating
	buckets []bucket
	// raw ratings of every rater, present when some rating values have no bucket
	catchAll *InvertedList
}

// ScaledInvertedIndex keeps, for each (item, rating value) bucket, the partial products r_v,i * rating
// of every rater v of the item. With compaction only the most frequent rating values of an item get
// their own bucket and the others fall back to a list of raw ratings.
type ScaledInvertedIndex struct {
	items      []scaledLists
	topBuckets int
}

// BuildScaledInvertedIndex derives a scaled index from an inverted index. topBuckets limits the number of
// buckets per item, 0 keeps a bucket for every distinct rating value.
func BuildScaledInvertedIndex(ctx context.Context, index *InvertedIndex, topBuckets, nJobs int) (*ScaledInvertedIndex, error) {
	start := time.Now()
	scaled := &ScaledInvertedIndex{
		items:      make([]scaledLists, len(index.lists)),
		topBuckets: topBuckets,
	}
	if err := parallel.For(ctx, len(index.lists), nJobs, func(item int) {
		scaled.items[item] = buildScaledLists(&index.lists[item], topBuckets)
	}); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("build scaled inverted index",
		zap.Int("n_buckets", scaled.CountBuckets()),
		zap.Int("top_buckets", topBuckets),
		zap.Duration("used_time", time.Since(start)))
	return scaled, nil
}

func buildScaledLists(list *InvertedList, topBuckets int) scaledLists {
	if list.Len() == 0 {
		return scaledLists{}
	}
	// count rating values
	freq := make(map[float64]int)
	for _, p := range list.postings {
		freq[p.Value]++
	}
	values := make([]float64, 0, len(freq))
	for value := range freq {
		values = append(values, value)
	}
	slices.SortFunc(values, func(a, b float64) int {
		if c := cmp.Compare(freq[b], freq[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	var lists scaledLists
	if topBuckets > 0 && len(values) > topBuckets {
		values = values[:topBuckets]
		lists.catchAll = &InvertedList{postings: slices.Clone(list.postings)}
	}
	slices.Sort(values)
	lists.buckets = make([]bucket, len(values))
	for i, value := range values {
		lists.buckets[i].rating = value
		lists.buckets[i].list.postings = make([]Posting, len(list.postings))
		for j, p := range list.postings {
			lists.buckets[i].list.postings[j] = Posting{User: p.User, Value: p.Value * value}
		}
	}
	return lists
}

// Bucket returns the bucket of (item, rating), or nil if the value has no bucket.
func (idx *ScaledInvertedIndex) Bucket(item int32, rating float64) *InvertedList {
	if item < 0 || int(item) >= len(idx.items) {
		return nil
	}
	buckets := idx.items[item].buckets
	i, found := slices.BinarySearchFunc(buckets, rating, func(b bucket, r float64) int {
		return cmp.Compare(b.rating, r)
	})
	if !found {
		return nil
	}
	return &buckets[i].list
}

// CatchAll returns the list of raw ratings of an item, or nil if every rating value has a bucket.
func (idx *ScaledInvertedIndex) CatchAll(item int32) *InvertedList {
	if item < 0 || int(item) >= len(idx.items) {
		return nil
	}
	return idx.items[item].catchAll
}

func (idx *ScaledInvertedIndex) Postings(item int32, rating float64) ([]Posting, float64) {
	if list := idx.Bucket(item, rating); list != nil {
		return list.postings, 1
	}
	return idx.CatchAll(item).Postings(), rating
}

func (idx *ScaledInvertedIndex) Kind() Kind {
	return ScaledInvertedLists
}

// CountBuckets returns the number of buckets including catch-all lists.
func (idx *ScaledInvertedIndex) CountBuckets() int {
	count := 0
	for _, lists := range idx.items {
		count += len(lists.buckets)
		if lists.catchAll != nil {
			count++
		}
	}
	return count
}
