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
	"container/heap"
	"context"
	"time"

	"github.com/gorse-io/lodrec/base/log"
	topk "github.com/gorse-io/lodrec/common/heap"
	"github.com/gorse-io/lodrec/common/parallel"
	"github.com/gorse-io/lodrec/common/sparse"
	"github.com/gorse-io/lodrec/dataset"
	"github.com/gorse-io/lodrec/storage"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Neighbor is a similar user.
type Neighbor struct {
	User       int32
	Similarity float64
}

// NeighborhoodEngine finds the k most similar users of each user by cosine similarity.
// Dot products are accumulated by merging the inverted lists of the items rated by the query user.
type NeighborhoodEngine struct {
	ratings   *dataset.RatingStore
	index     storage.RatingIndex
	k         int
	places    int
	neighbors [][]Neighbor
}

func NewNeighborhoodEngine(ratings *dataset.RatingStore, index storage.RatingIndex, k, places int) *NeighborhoodEngine {
	return &NeighborhoodEngine{
		ratings: ratings,
		index:   index,
		k:       k,
		places:  places,
	}
}

// Fit computes the neighborhood of every user in parallel.
func (e *NeighborhoodEngine) Fit(ctx context.Context, nJobs int) error {
	start := time.Now()
	users := e.ratings.Users()
	neighbors := make([][]Neighbor, 0)
	if len(users) > 0 {
		neighbors = make([][]Neighbor, users[len(users)-1]+1)
	}
	if err := parallel.For(ctx, len(users), nJobs, func(jobId int) {
		user := users[jobId]
		neighbors[user] = e.ComputeNeighbors(user)
	}); err != nil {
		return errors.Trace(err)
	}
	e.neighbors = neighbors
	FitNeighborsSeconds.Observe(time.Since(start).Seconds())
	log.Logger().Info("fit neighbors",
		zap.Int("n_users", len(users)),
		zap.Int("k", e.k),
		zap.String("storage", e.index.Kind().String()),
		zap.Duration("used_time", time.Since(start)))
	return nil
}

// Neighbors returns the neighborhood of a user, computed on demand if Fit was not called.
func (e *NeighborhoodEngine) Neighbors(user int32) []Neighbor {
	if e.neighbors != nil {
		if user < 0 || int(user) >= len(e.neighbors) {
			return nil
		}
		return e.neighbors[user]
	}
	return e.ComputeNeighbors(user)
}

// cursor points at the next posting of an inverted list.
type cursor struct {
	postings []storage.Posting
	factor   float64
	pos      int
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	return h[i].postings[h[i].pos].User < h[j].postings[h[j].pos].User
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) { *h = append(*h, x.(*cursor)) }

func (h *cursorHeap) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

// ComputeNeighbors merges the inverted lists of the items rated by user in ascending order of
// neighbor index, so the dot product with each neighbor is complete when the merge moves past it.
func (e *NeighborhoodEngine) ComputeNeighbors(user int32) []Neighbor {
	ratings := e.ratings.UserRatings(user)
	norm := e.ratings.Norm(user)
	if len(ratings) == 0 || norm == 0 || e.k <= 0 {
		return nil
	}
	h := make(cursorHeap, 0, len(ratings))
	for _, r := range ratings {
		postings, factor := e.index.Postings(r.Item, r.Rating)
		if len(postings) > 0 {
			h = append(h, &cursor{postings: postings, factor: factor})
		}
	}
	heap.Init(&h)
	filter := topk.NewTopKFilter[int32, float64](e.k)
	flush := func(neighbor int32, dot float64) {
		if neighbor == user || dot == 0 {
			return
		}
		neighborNorm := e.ratings.Norm(neighbor)
		if neighborNorm == 0 {
			return
		}
		similarity := sparse.Round(dot/(norm*neighborNorm), e.places)
		if similarity != 0 {
			filter.Push(neighbor, similarity)
		}
	}
	current, dot := int32(-1), 0.0
	for h.Len() > 0 {
		c := h[0]
		p := c.postings[c.pos]
		if p.User != current {
			flush(current, dot)
			current, dot = p.User, 0
		}
		dot += p.Value * c.factor
		c.pos++
		if c.pos < len(c.postings) {
			heap.Fix(&h, 0)
		} else {
			heap.Pop(&h)
		}
	}
	flush(current, dot)
	elems := filter.PopAll()
	neighbors := make([]Neighbor, len(elems))
	for i, elem := range elems {
		neighbors[i] = Neighbor{User: elem.Value, Similarity: elem.Weight}
	}
	return neighbors
}

// Similarity computes the cosine similarity between the rating vectors of two users.
func (e *NeighborhoodEngine) Similarity(u, v int32) float64 {
	return sparseSimilarity(e.ratings, u, v, e.places)
}

func sparseSimilarity(ratings *dataset.RatingStore, u, v int32, places int) float64 {
	return sparse.Round(sparse.Cosine(ratingVector(ratings, u), ratingVector(ratings, v)), places)
}

func ratingVector(ratings *dataset.RatingStore, user int32) *sparse.Vector {
	userRatings := ratings.UserRatings(user)
	vec := sparse.NewVector(len(userRatings))
	for _, r := range userRatings {
		vec.Add(r.Item, r.Rating)
	}
	return vec
}
