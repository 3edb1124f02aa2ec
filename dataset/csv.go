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
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorse-io/lodrec/base"
	"github.com/gorse-io/lodrec/common/util"
	"github.com/juju/errors"
)

const (
	RatingsFile      = "ratings.csv"
	TriplesFile      = "triples.csv"
	SourceDomainFile = "source_domain.csv"
	TargetDomainFile = "target_domain.csv"
)

// CSVLoader reads a data set from a directory of separated text files:
//
//	ratings.csv        user, item[, rating]
//	triples.csv        subject, predicate, object
//	source_domain.csv  one resource per line
//	target_domain.csv  one resource per line
//
// Missing files are treated as empty.
type CSVLoader struct {
	dir       string
	sep       rune
	hasHeader bool
}

func NewCSVLoader(dir, separator string, hasHeader bool) *CSVLoader {
	sep := ','
	if separator != "" {
		sep = []rune(separator)[0]
	}
	return &CSVLoader{dir: dir, sep: sep, hasHeader: hasHeader}
}

func (l *CSVLoader) LoadRatings(ctx context.Context, fn func(Rating) error) error {
	return l.readFile(ctx, RatingsFile, 2, func(fields []string) error {
		rating, err := util.ParseFloatOr(valueAt(fields, 2), 1.0)
		if err != nil {
			return errors.Annotatef(err, "invalid rating %q", fields[2])
		}
		return fn(Rating{User: strings.TrimSpace(fields[0]), Item: strings.TrimSpace(fields[1]), Rating: rating})
	})
}

func (l *CSVLoader) LoadTriples(ctx context.Context, fn func(Triple) error) error {
	return l.readFile(ctx, TriplesFile, 3, func(fields []string) error {
		return fn(Triple{
			Subject:   strings.TrimSpace(fields[0]),
			Predicate: strings.TrimSpace(fields[1]),
			Object:    strings.TrimSpace(fields[2]),
		})
	})
}

func (l *CSVLoader) LoadDomains(ctx context.Context) (source, target []string, err error) {
	if err = l.readFile(ctx, SourceDomainFile, 1, func(fields []string) error {
		source = append(source, strings.TrimSpace(fields[0]))
		return nil
	}); err != nil {
		return nil, nil, err
	}
	if err = l.readFile(ctx, TargetDomainFile, 1, func(fields []string) error {
		target = append(target, strings.TrimSpace(fields[0]))
		return nil
	}); err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

func (l *CSVLoader) readFile(ctx context.Context, name string, minFields int, handler func([]string) error) error {
	path := filepath.Join(l.dir, name)
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return base.NewLoadError(path, err)
	}
	defer file.Close()
	err = ReadLines(bufio.NewScanner(file), l.sep, func(lineNo int, fields []string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lineNo == 0 && l.hasHeader {
			return nil
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			// blank line
			return nil
		}
		if len(fields) < minFields {
			return fmt.Errorf("line %d: expect at least %d fields but got %d", lineNo+1, minFields, len(fields))
		}
		return handler(fields)
	})
	return base.NewLoadError(path, err)
}

func valueAt(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// ReadLines parse fields of each line for csv file. Parsing stops at the first error returned by handler.
func ReadLines(sc *bufio.Scanner, sep rune, handler func(int, []string) error) error {
	lineCount := 0               // line number of current position
	fields := make([]string, 0)  // fields for current line
	builder := strings.Builder{} // string builder for current field
	quoted := false              // whether current position in quote
	for sc.Scan() {
		// read line
		lineStr := sc.Text()
		line := []rune(lineStr)
		// start of line
		if quoted {
			builder.WriteString("\r\n")
		}
		// parse line
		for i := 0; i < len(line); i++ {
			if line[i] == sep && !quoted {
				// end of field
				fields = append(fields, builder.String())
				builder.Reset()
			} else if line[i] == '"' {
				if quoted {
					if i+1 >= len(line) || line[i+1] != '"' {
						// end of quoted
						quoted = false
					} else {
						i++
						builder.WriteRune('"')
					}
				} else {
					// start of quoted
					quoted = true
				}
			} else {
				builder.WriteRune(line[i])
			}
		}
		// end of line
		if !quoted {
			fields = append(fields, builder.String())
			builder.Reset()
			if err := handler(lineCount, fields); err != nil {
				return err
			}
			fields = []string{}
		}
		// increase line count
		lineCount++
	}
	return sc.Err()
}

// Escape text for csv.
func Escape(text string, sep rune) string {
	// check if need escape
	if !strings.ContainsRune(text, sep) &&
		!strings.Contains(text, "\"") &&
		!strings.Contains(text, "\n") &&
		!strings.Contains(text, "\r") {
		return text
	}
	// start to encode
	builder := strings.Builder{}
	builder.WriteRune('"')
	for _, c := range text {
		if c == '"' {
			builder.WriteString("\"\"")
		} else {
			builder.WriteRune(c)
		}
	}
	builder.WriteRune('"')
	return builder.String()
}

// ExportCSV copies every record of a loader into CSV files under dir.
func ExportCSV(ctx context.Context, loader Loader, dir, separator string) error {
	sep := NewCSVLoader(dir, separator, false).sep
	join := func(fields ...string) string {
		escaped := make([]string, len(fields))
		for i, field := range fields {
			escaped[i] = Escape(field, sep)
		}
		return strings.Join(escaped, string(sep)) + "\n"
	}
	writeFile := func(name string, fill func(w *bufio.Writer) error) error {
		path := filepath.Join(dir, name)
		file, err := os.Create(path)
		if err != nil {
			return errors.Trace(err)
		}
		defer file.Close()
		w := bufio.NewWriter(file)
		if err = fill(w); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(w.Flush())
	}
	if err := writeFile(RatingsFile, func(w *bufio.Writer) error {
		return loader.LoadRatings(ctx, func(r Rating) error {
			_, err := w.WriteString(join(r.User, r.Item, strconv.FormatFloat(r.Rating, 'g', -1, 64)))
			return err
		})
	}); err != nil {
		return err
	}
	if err := writeFile(TriplesFile, func(w *bufio.Writer) error {
		return loader.LoadTriples(ctx, func(t Triple) error {
			_, err := w.WriteString(join(t.Subject, t.Predicate, t.Object))
			return err
		})
	}); err != nil {
		return err
	}
	source, target, err := loader.LoadDomains(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	for name, domain := range map[string][]string{SourceDomainFile: source, TargetDomainFile: target} {
		if err = writeFile(name, func(w *bufio.Writer) error {
			for _, resource := range domain {
				if _, err := w.WriteString(join(resource)); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
