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

package util

import (
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// ParseFloat parses a decimal number. Surrounding spaces are ignored.
func ParseFloat[T constraints.Float](s string) (T, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return T(v), err
}

// ParseFloatOr parses s and falls back to def when s is blank.
func ParseFloatOr[T constraints.Float](s string, def T) (T, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return ParseFloat[T](s)
}
