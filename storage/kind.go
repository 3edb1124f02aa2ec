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
	"github.com/gorse-io/lodrec/config"
	"github.com/juju/errors"
)

// Kind is a storage backend.
type Kind int

const (
	InvertedLists Kind = iota
	ScaledInvertedLists
	InMemoryGraph
)

var kindNames = map[Kind]string{
	InvertedLists:       config.StorageInvertedLists,
	ScaledInvertedLists: config.StorageScaledInvertedLists,
	InMemoryGraph:       config.StorageInMemoryGraph,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind converts a configured storage name to a Kind.
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}
	return 0, errors.NotValidf("storage %q", name)
}
