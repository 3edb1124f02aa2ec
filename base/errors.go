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

package base

import (
	"fmt"

	"github.com/juju/errors"
)

const (
	// ErrEmptyResultSet is returned when a query required by a computation matches nothing,
	// e.g. there is no target node for a graph-based recommendation.
	ErrEmptyResultSet = errors.ConstError("empty result set")
	// ErrComputationUnavailable is returned when a score is requested for a node that is
	// absent from the computed subgraph. Public APIs convert it into a score of zero.
	ErrComputationUnavailable = errors.ConstError("computation unavailable")
)

// NotFound returns an error satisfying errors.Is(err, errors.NotFound) for an unindexed resource.
func NotFound(uri string) error {
	return errors.NotFoundf("resource %s", uri)
}

// LoadError wraps every failure raised by an external data loader.
type LoadError struct {
	Source string
	Cause  error
}

// NewLoadError wraps err as a LoadError. Nil is returned for a nil error.
func NewLoadError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &LoadError{Source: source, Cause: err}
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load data from %s: %v", e.Source, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
