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

package dataset

import (
	"math"
	"sort"
)

// IndexedRatedRes is a rated item. Two values are ordered and compared by item index only.
type IndexedRatedRes struct {
	Item   int32
	Rating float64
}

// RatingStore keeps the ratings of each user sorted by item index, plus the raters of each item.
// Users and items share the index space of the resource index. A later rating of the same
// (user, item) pair replaces the earlier one.
type RatingStore struct {
	userRatings [][]IndexedRatedRes
	itemUsers   [][]int32
	sums        []float64
	squares     []float64
	users       []int32
	numItems    int
	numRatings  int
	explicit    bool
}

func NewRatingStore() *RatingStore {
	return &RatingStore{}
}

func (s *RatingStore) growUsers(n int) {
	for len(s.userRatings) < n {
		s.userRatings = append(s.userRatings, nil)
		s.sums = append(s.sums, 0)
		s.squares = append(s.squares, 0)
	}
}

func (s *RatingStore) growItems(n int) {
	for len(s.itemUsers) < n {
		s.itemUsers = append(s.itemUsers, nil)
	}
}

// AddRating inserts a rating and reports whether it replaced an existing rating of the same item.
func (s *RatingStore) AddRating(user, item int32, rating float64) (replaced bool) {
	s.growUsers(int(user) + 1)
	s.growItems(int(item) + 1)
	if rating != 1 {
		s.explicit = true
	}
	ratings := s.userRatings[user]
	i := sort.Search(len(ratings), func(i int) bool { return ratings[i].Item >= item })
	if i < len(ratings) && ratings[i].Item == item {
		old := ratings[i].Rating
		ratings[i].Rating = rating
		s.sums[user] += rating - old
		s.squares[user] += rating*rating - old*old
		return true
	}
	if len(ratings) == 0 {
		// first rating of a new user
		j := sort.Search(len(s.users), func(j int) bool { return s.users[j] >= user })
		s.users = insertAt(s.users, j, user)
	}
	s.userRatings[user] = insertAt(ratings, i, IndexedRatedRes{Item: item, Rating: rating})
	s.sums[user] += rating
	s.squares[user] += rating * rating
	raters := s.itemUsers[item]
	if len(raters) == 0 {
		s.numItems++
	}
	j := sort.Search(len(raters), func(j int) bool { return raters[j] >= user })
	s.itemUsers[item] = insertAt(raters, j, user)
	s.numRatings++
	return false
}

func insertAt[T any](a []T, i int, v T) []T {
	var zero T
	a = append(a, zero)
	copy(a[i+1:], a[i:])
	a[i] = v
	return a
}

// UserRatings returns the ratings of a user sorted by item index.
func (s *RatingStore) UserRatings(user int32) []IndexedRatedRes {
	if user < 0 || int(user) >= len(s.userRatings) {
		return nil
	}
	return s.userRatings[user]
}

// ItemUsers returns the users who rated an item sorted by user index.
func (s *RatingStore) ItemUsers(item int32) []int32 {
	if item < 0 || int(item) >= len(s.itemUsers) {
		return nil
	}
	return s.itemUsers[item]
}

// Rating returns the rating of a user on an item.
func (s *RatingStore) Rating(user, item int32) (float64, bool) {
	ratings := s.UserRatings(user)
	i := sort.Search(len(ratings), func(i int) bool { return ratings[i].Item >= item })
	if i < len(ratings) && ratings[i].Item == item {
		return ratings[i].Rating, true
	}
	return 0, false
}

func (s *RatingStore) HasRated(user, item int32) bool {
	_, ok := s.Rating(user, item)
	return ok
}

// AverageRating returns the mean of all ratings of a user, or 0 if the user has no rating.
func (s *RatingStore) AverageRating(user int32) float64 {
	n := len(s.UserRatings(user))
	if n == 0 {
		return 0
	}
	return s.sums[user] / float64(n)
}

// Norm returns the L2 norm of the rating vector of a user.
func (s *RatingStore) Norm(user int32) float64 {
	if len(s.UserRatings(user)) == 0 {
		return 0
	}
	return math.Sqrt(s.squares[user])
}

// Users returns users having at least one rating in ascending order.
func (s *RatingStore) Users() []int32 {
	return s.users
}

func (s *RatingStore) CountUsers() int {
	return len(s.users)
}

func (s *RatingStore) CountItems() int {
	return s.numItems
}

// Count returns the number of distinct (user, item) ratings.
func (s *RatingStore) Count() int {
	return s.numRatings
}

// IsImplicit returns true if every rating equals 1.
func (s *RatingStore) IsImplicit() bool {
	return !s.explicit
}
