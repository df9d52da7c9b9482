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
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gorse-io/transit/storage/data"
	"github.com/juju/errors"
)

// ItemFilter keeps catalog items matching a boolean expression over `item`.
type ItemFilter struct {
	program *vm.Program
}

// NewItemFilter compiles an expression such as
//
//	item.Origin != "" && item.Meta["airline"] != "Closed Air"
//
// An empty expression keeps every item.
func NewItemFilter(expression string) (*ItemFilter, error) {
	if expression == "" {
		return &ItemFilter{}, nil
	}
	program, err := expr.Compile(expression, expr.Env(map[string]any{
		"item": data.Item{},
	}))
	if err != nil {
		return nil, errors.Annotate(err, "compile item filter")
	}
	if program.Node().Type().Kind() != reflect.Bool {
		return nil, errors.NotValidf("item filter %q must return bool", expression)
	}
	return &ItemFilter{program: program}, nil
}

// Filter returns the matching items in their original order.
func (f *ItemFilter) Filter(items []data.Item) ([]data.Item, error) {
	if f == nil || f.program == nil {
		return items, nil
	}
	filtered := make([]data.Item, 0, len(items))
	for _, item := range items {
		result, err := expr.Run(f.program, map[string]any{"item": item})
		if err != nil {
			return nil, errors.Annotatef(err, "filter item %s", item.ItemId)
		}
		if keep, ok := result.(bool); ok && keep {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}
