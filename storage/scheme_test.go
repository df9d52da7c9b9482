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
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestAppendURLParams(t *testing.T) {
	// test windows path
	url, err := AppendURLParams(`c:\\sqlite.db`, []lo.Tuple2[string, string]{{A: "a", B: "b"}})
	assert.NoError(t, err)
	assert.Equal(t, `c:\\sqlite.db?a=b`, url)
	// test no scheme
	url, err = AppendURLParams(`sqlite.db`, []lo.Tuple2[string, string]{{A: "a", B: "b"}})
	assert.NoError(t, err)
	assert.Equal(t, `sqlite.db?a=b`, url)
}

func TestAppendMySQLParams(t *testing.T) {
	dsn, err := AppendMySQLParams("root:password@tcp(127.0.0.1:3306)/transit?sql_mode=ANSI", map[string]string{
		"sql_mode": "TRADITIONAL",
		"charset":  "utf8mb4",
	})
	assert.NoError(t, err)
	assert.Contains(t, dsn, "sql_mode=ANSI")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestTablePrefix(t *testing.T) {
	prefix := TablePrefix("air_")
	assert.Equal(t, "air_items", prefix.ItemsTable())
	assert.Equal(t, "air_interactions", prefix.InteractionsTable())
	assert.Equal(t, "air_model_version", prefix.Key("model_version"))
}

func TestNewOptions(t *testing.T) {
	opt := NewOptions()
	assert.Empty(t, opt.Mode)
	assert.Equal(t, 100, opt.FetchLimit)
	opt = NewOptions(WithMode("rail"), WithFetchLimit(10), WithMaxOpenConns(4))
	assert.Equal(t, "rail", opt.Mode)
	assert.Equal(t, 10, opt.FetchLimit)
	assert.Equal(t, 4, opt.MaxOpenConns)
}
