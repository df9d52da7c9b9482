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

package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gorse-io/transit/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Meta keys written after every successful model build.
const (
	LastFitTime  = "last_fit_time"
	ModelVersion = "model_version"
	NumUsers     = "num_users"
	NumItems     = "num_items"
	NumRatings   = "num_ratings"
	State        = "state"
	RMSE         = "rmse"
)

var (
	ErrObjectNotExist = errors.NotFoundf("object")
	ErrNoDatabase     = errors.NotValidf("cache database")
)

// Value is a named string to be stored.
type Value struct {
	name  string
	value string
}

func String(name, value string) Value {
	return Value{name: name, value: value}
}

func Integer(name string, value int) Value {
	return Value{name: name, value: strconv.Itoa(value)}
}

func Float(name string, value float64) Value {
	return Value{name: name, value: strconv.FormatFloat(value, 'f', -1, 64)}
}

func Time(name string, value time.Time) Value {
	return Value{name: name, value: value.Format(time.RFC3339Nano)}
}

// ReturnValue is the result of Get, converted on demand.
type ReturnValue struct {
	value string
	err   error
}

func (r *ReturnValue) String() (string, error) {
	return r.value, r.err
}

func (r *ReturnValue) Integer() (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	i, err := strconv.Atoi(r.value)
	return i, errors.Trace(err)
}

func (r *ReturnValue) Float() (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	f, err := strconv.ParseFloat(r.value, 64)
	return f, errors.Trace(err)
}

func (r *ReturnValue) Time() (time.Time, error) {
	if r.err != nil {
		return time.Time{}, r.err
	}
	t, err := time.Parse(time.RFC3339Nano, r.value)
	return t, errors.Trace(err)
}

// Database stores the meta data of the serving model.
type Database interface {
	Close() error
	Init() error
	Ping(ctx context.Context) error
	Set(ctx context.Context, values ...Value) error
	Get(ctx context.Context, name string) *ReturnValue
	Delete(ctx context.Context, name string) error
}

// Open a connection to a cache database. An empty path opens NoDatabase.
func Open(path, tablePrefix string) (Database, error) {
	if path == "" {
		return NoDatabase{}, nil
	}
	if strings.HasPrefix(path, storage.RedisPrefix) || strings.HasPrefix(path, storage.RedissPrefix) {
		opt, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := new(Redis)
		database.client = redis.NewClient(opt)
		if err = redisotel.InstrumentTracing(database.client); err != nil {
			return nil, errors.Trace(err)
		}
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		return database, nil
	}
	return nil, errors.Errorf("Unknown database: %s", path)
}
