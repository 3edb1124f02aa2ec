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
	"database/sql"
	"net/url"

	"github.com/gorse-io/lodrec/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"
)

const (
	DomainSource = "source"
	DomainTarget = "target"
)

// SQLLoader reads a data set from a SQLite database with the tables
//
//	ratings(user, item, rating)     a NULL rating means 1
//	triples(subject, predicate, object)
//	domains(resource, domain)       domain is "source" or "target"
//
// Missing tables are treated as empty.
type SQLLoader struct {
	path string
	db   *sql.DB
}

func NewSQLLoader(path string) (*SQLLoader, error) {
	// append parameters
	dataSourceName, err := AppendURLParams(path, []lo.Tuple2[string, string]{
		{A: "_pragma", B: "busy_timeout(10000)"},
		{A: "_pragma", B: "journal_mode(wal)"},
	})
	if err != nil {
		return nil, base.NewLoadError(path, err)
	}
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, base.NewLoadError(path, err)
	}
	return &SQLLoader{path: path, db: db}, nil
}

func AppendURLParams(rawURL string, params []lo.Tuple2[string, string]) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Trace(err)
	}
	q := parsed.Query()
	for _, tuple := range params {
		q.Add(tuple.A, tuple.B)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func (l *SQLLoader) Close() error {
	return l.db.Close()
}

// Init creates tables if they do not exist.
func (l *SQLLoader) Init() error {
	if _, err := l.db.Exec(`
CREATE TABLE IF NOT EXISTS ratings (
	user TEXT NOT NULL,
	item TEXT NOT NULL,
	rating REAL
);`); err != nil {
		return errors.Trace(err)
	}
	if _, err := l.db.Exec(`
CREATE TABLE IF NOT EXISTS triples (
	subject TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object TEXT NOT NULL
);`); err != nil {
		return errors.Trace(err)
	}
	if _, err := l.db.Exec(`
CREATE TABLE IF NOT EXISTS domains (
	resource TEXT NOT NULL,
	domain TEXT NOT NULL CHECK (domain IN ('source', 'target'))
);`); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Import replaces the records of the database by every record of another loader.
func (l *SQLLoader) Import(ctx context.Context, from Loader, progress func()) error {
	if err := l.Init(); err != nil {
		return errors.Trace(err)
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, table := range []string{"ratings", "triples", "domains"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.Trace(err)
		}
	}
	tick := func() {
		if progress != nil {
			progress()
		}
	}
	if err = from.LoadRatings(ctx, func(r Rating) error {
		tick()
		_, err := tx.ExecContext(ctx, `INSERT INTO ratings (user, item, rating) VALUES (?, ?, ?)`, r.User, r.Item, r.Rating)
		return err
	}); err != nil {
		return errors.Trace(err)
	}
	if err = from.LoadTriples(ctx, func(t Triple) error {
		tick()
		_, err := tx.ExecContext(ctx, `INSERT INTO triples (subject, predicate, object) VALUES (?, ?, ?)`,
			t.Subject, t.Predicate, t.Object)
		return err
	}); err != nil {
		return errors.Trace(err)
	}
	source, target, err := from.LoadDomains(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	for domain, resources := range map[string][]string{DomainSource: source, DomainTarget: target} {
		for _, resource := range resources {
			tick()
			if _, err = tx.ExecContext(ctx, `INSERT INTO domains (resource, domain) VALUES (?, ?)`, resource, domain); err != nil {
				return errors.Trace(err)
			}
		}
	}
	return errors.Trace(tx.Commit())
}

func (l *SQLLoader) hasTable(ctx context.Context, name string) (bool, error) {
	var count int
	if err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (l *SQLLoader) LoadRatings(ctx context.Context, fn func(Rating) error) error {
	return base.NewLoadError(l.path, l.query(ctx, "ratings", `SELECT user, item, rating FROM ratings ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var r Rating
			var rating sql.NullFloat64
			if err := rows.Scan(&r.User, &r.Item, &rating); err != nil {
				return err
			}
			r.Rating = 1
			if rating.Valid {
				r.Rating = rating.Float64
			}
			return fn(r)
		}))
}

func (l *SQLLoader) LoadTriples(ctx context.Context, fn func(Triple) error) error {
	return base.NewLoadError(l.path, l.query(ctx, "triples", `SELECT subject, predicate, object FROM triples ORDER BY rowid`,
		func(rows *sql.Rows) error {
			var t Triple
			if err := rows.Scan(&t.Subject, &t.Predicate, &t.Object); err != nil {
				return err
			}
			return fn(t)
		}))
}

func (l *SQLLoader) LoadDomains(ctx context.Context) (source, target []string, err error) {
	err = l.query(ctx, "domains", `SELECT resource, domain FROM domains ORDER BY rowid`, func(rows *sql.Rows) error {
		var resource, domain string
		if err := rows.Scan(&resource, &domain); err != nil {
			return err
		}
		switch domain {
		case DomainSource:
			source = append(source, resource)
		case DomainTarget:
			target = append(target, resource)
		}
		return nil
	})
	if err != nil {
		return nil, nil, base.NewLoadError(l.path, err)
	}
	return source, target, nil
}

func (l *SQLLoader) query(ctx context.Context, table, query string, scan func(*sql.Rows) error) error {
	exist, err := l.hasTable(ctx, table)
	if err != nil {
		return err
	} else if !exist {
		return nil
	}
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err = scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
