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
	"io"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	err := NotFound("http://example.org/alice")
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.Contains(t, err.Error(), "http://example.org/alice")
	// traced errors keep their kind
	assert.True(t, errors.Is(errors.Trace(err), errors.NotFound))
}

func TestLoadError(t *testing.T) {
	assert.NoError(t, NewLoadError("ratings.csv", nil))
	err := NewLoadError("ratings.csv", io.ErrUnexpectedEOF)
	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "ratings.csv", loadErr.Source)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "failed to load data from ratings.csv: unexpected EOF", err.Error())
}

func TestConstErrors(t *testing.T) {
	err := errors.Annotate(ErrEmptyResultSet, "no target nodes")
	assert.True(t, errors.Is(err, ErrEmptyResultSet))
	assert.False(t, errors.Is(err, ErrComputationUnavailable))
}
