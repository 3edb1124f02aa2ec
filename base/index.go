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

// Index manages the map between resource URIs and dense indices. A resource URI is
// a user, item, predicate or any other graph node. The dense index is the internal
// index used by rating stores, inverted lists and graphs.
type Index struct {
	Numbers map[string]int32 // URI -> dense index
	Names   []string         // dense index -> URI
}

// NotId represents an ID doesn't exist.
const NotId = int32(-1)

// NewMapIndex creates a Index.
func NewMapIndex() *Index {
	set := new(Index)
	set.Numbers = make(map[string]int32)
	set.Names = make([]string, 0)
	return set
}

// Len returns the number of indexed Names.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Names)
}

// Add adds a new name to the indexer and returns its index. Indices are assigned
// sequentially and never reused.
func (idx *Index) Add(name string) int32 {
	if denseId, exist := idx.Numbers[name]; exist {
		return denseId
	}
	denseId := int32(len(idx.Names))
	idx.Numbers[name] = denseId
	idx.Names = append(idx.Names, name)
	return denseId
}

// ToNumber converts a name to a dense index. NotId is returned for unknown names.
func (idx *Index) ToNumber(name string) int32 {
	if idx == nil {
		return NotId
	}
	if denseId, exist := idx.Numbers[name]; exist {
		return denseId
	}
	return NotId
}

// ToName converts a dense index to a name.
func (idx *Index) ToName(index int32) string {
	return idx.Names[index]
}

// GetNames returns all names in current index.
func (idx *Index) GetNames() []string {
	return idx.Names
}
