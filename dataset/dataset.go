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
	"context"
	"strings"
	"time"

	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/base/log"
	"github.com/gorse-io/lodrec/config"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Rating is a (user, item, rating) tuple. Implicit feedback has a rating of 1.
type Rating struct {
	User   string
	Item   string
	Rating float64
}

// Triple is a (subject, predicate, object) statement.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// IndexedTriple is a triple whose subject and object are resource indices and
// whose predicate is a predicate id.
type IndexedTriple struct {
	Subject   int32
	Predicate int32
	Object    int32
}

// Loader streams raw records from a data source.
type Loader interface {
	LoadRatings(ctx context.Context, fn func(Rating) error) error
	LoadTriples(ctx context.Context, fn func(Triple) error) error
	LoadDomains(ctx context.Context) (source, target []string, err error)
}

// Dataset is the indexed form of everything loaded from a data source.
type Dataset struct {
	Resources    *base.Index
	Predicates   *FreqDict
	Ratings      *RatingStore
	Triples      []IndexedTriple
	SourceDomain []int32
	TargetDomain []int32
	// number of ratings replaced by a later rating of the same pair
	Replaced int
}

func NewDataset() *Dataset {
	return &Dataset{
		Resources:  base.NewMapIndex(),
		Predicates: NewFreqDict(),
		Ratings:    NewRatingStore(),
	}
}

// AddRating indexes both resources and stores the rating.
func (d *Dataset) AddRating(user, item string, rating float64) {
	userIndex := d.Resources.Add(user)
	itemIndex := d.Resources.Add(item)
	if d.Ratings.AddRating(userIndex, itemIndex, rating) {
		d.Replaced++
		log.Logger().Debug("rating replaced",
			zap.String("user", user), zap.String("item", item), zap.Float64("rating", rating))
	}
}

// AddTriple indexes the subject, the object and the predicate of a triple.
func (d *Dataset) AddTriple(subject, predicate, object string) {
	d.Triples = append(d.Triples, IndexedTriple{
		Subject:   d.Resources.Add(subject),
		Predicate: d.Predicates.Id(predicate),
		Object:    d.Resources.Add(object),
	})
}

// SetDomains indexes the resources of the source domain and the target domain.
func (d *Dataset) SetDomains(source, target []string) {
	d.SourceDomain = make([]int32, 0, len(source))
	for _, name := range source {
		d.SourceDomain = append(d.SourceDomain, d.Resources.Add(name))
	}
	d.TargetDomain = make([]int32, 0, len(target))
	for _, name := range target {
		d.TargetDomain = append(d.TargetDomain, d.Resources.Add(name))
	}
}

// Load reads ratings, triples and domains from a loader.
func Load(ctx context.Context, loader Loader) (*Dataset, error) {
	start := time.Now()
	d := NewDataset()
	if err := loader.LoadRatings(ctx, func(r Rating) error {
		d.AddRating(r.User, r.Item, r.Rating)
		return nil
	}); err != nil {
		return nil, errors.Trace(err)
	}
	if err := loader.LoadTriples(ctx, func(t Triple) error {
		d.AddTriple(t.Subject, t.Predicate, t.Object)
		return nil
	}); err != nil {
		return nil, errors.Trace(err)
	}
	source, target, err := loader.LoadDomains(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	d.SetDomains(source, target)
	log.Logger().Info("load dataset",
		zap.Int("n_resources", d.Resources.Len()),
		zap.Int("n_users", d.Ratings.CountUsers()),
		zap.Int("n_items", d.Ratings.CountItems()),
		zap.Int("n_ratings", d.Ratings.Count()),
		zap.Int("n_replaced", d.Replaced),
		zap.Int("n_triples", len(d.Triples)),
		zap.Int("n_predicates", d.Predicates.Count()),
		zap.Int("n_source", len(d.SourceDomain)),
		zap.Int("n_target", len(d.TargetDomain)),
		zap.Duration("used_time", time.Since(start)))
	return d, nil
}

// Open creates a loader for a data store URL.
func Open(path, separator string, hasHeader bool) (Loader, error) {
	switch {
	case strings.HasPrefix(path, config.CSVPrefix):
		return NewCSVLoader(path[len(config.CSVPrefix):], separator, hasHeader), nil
	case strings.HasPrefix(path, config.SQLitePrefix):
		loader, err := NewSQLLoader(path[len(config.SQLitePrefix):])
		if err != nil {
			return nil, errors.Trace(err)
		}
		return loader, nil
	}
	return nil, errors.NotSupportedf("data store %s", path)
}
