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
	"sync"
	"time"

	"github.com/gorse-io/lodrec/base/log"
	"github.com/gorse-io/lodrec/common/parallel"
	"github.com/gorse-io/lodrec/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Posting is a (user, value) entry of an inverted list.
type Posting struct {
	User  int32
	Value float64
}

// InvertedList is an append-only list of postings. It must be compacted before it is merged.
type InvertedList struct {
	postings []Posting
}

func (l *InvertedList) Append(user int32, value float64) {
	l.postings = append(l.postings, Posting{User: user, Value: value})
}

// CompactAndSort trims unused capacity and sorts postings by ascending user.
func (l *InvertedList) CompactAndSort() {
	l.postings = slices.Clip(l.postings)
	slices.SortFunc(l.postings, func(a, b Posting) int {
		return cmp.Compare(a.User, b.User)
	})
}

func (l *InvertedList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.postings)
}

func (l *InvertedList) Postings() []Posting {
	if l == nil {
		return nil
	}
	return l.postings
}

// RatingIndex looks up the postings contributing r_u,i * r_v,i for a query user rating an item.
// Each posting value must be multiplied by factor.
type RatingIndex interface {
	Postings(item int32, rating float64) (postings []Posting, factor float64)
	Kind() Kind
}

// InvertedIndex keeps the raters of every item with their raw ratings.
type InvertedIndex struct {
	lists []InvertedList
}

// NewInvertedIndex creates an empty index over numItems resource indices.
func NewInvertedIndex(numItems int) *InvertedIndex {
	return &InvertedIndex{lists: make([]InvertedList, numItems)}
}

// BuildInvertedIndex builds an inverted index from a rating store. Users are scanned by nJobs workers,
// appends are guarded by per-item locks and lists are compacted after every worker has finished.
func BuildInvertedIndex(ctx context.Context, ratings *dataset.RatingStore, numItems, nJobs int) (*InvertedIndex, error) {
	start := time.Now()
	index := NewInvertedIndex(numItems)
	locks := make([]sync.Mutex, numItems)
	users := ratings.Users()
	if err := parallel.For(ctx, len(users), nJobs, func(jobId int) {
		user := users[jobId]
		for _, r := range ratings.UserRatings(user) {
			locks[r.Item].Lock()
			index.lists[r.Item].Append(user, r.Rating)
			locks[r.Item].Unlock()
		}
	}); err != nil {
		return nil, errors.Trace(err)
	}
	if err := index.CompactAndSort(ctx, nJobs); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("build inverted index",
		zap.Int("n_users", len(users)),
		zap.Int("n_lists", index.CountLists()),
		zap.Duration("used_time", time.Since(start)))
	return index, nil
}

// CompactAndSort compacts every list in parallel.
func (idx *InvertedIndex) CompactAndSort(ctx context.Context, nJobs int) error {
	return parallel.For(ctx, len(idx.lists), nJobs, func(item int) {
		idx.lists[item].CompactAndSort()
	})
}

// List returns the inverted list of an item, or nil for an unknown item.
func (idx *InvertedIndex) List(item int32) *InvertedList {
	if item < 0 || int(item) >= len(idx.lists) {
		return nil
	}
	return &idx.lists[item]
}

func (idx *InvertedIndex) Postings(item int32, rating float64) ([]Posting, float64) {
	return idx.List(item).Postings(), rating
}

func (idx *InvertedIndex) Kind() Kind {
	return InvertedLists
}

// CountLists returns the number of non-empty lists.
func (idx *InvertedIndex) CountLists() int {
	count := 0
	for i := range idx.lists {
		if idx.lists[i].Len() > 0 {
			count++
		}
	}
	return count
}
