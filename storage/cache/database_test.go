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
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func testMeta(t *testing.T, db Database) {
	ctx := context.Background()
	// Set meta string
	err := db.Set(ctx, String(ModelVersion, "1"), String(State, "Serving"))
	assert.NoError(t, err)
	// Get meta string
	value, err := db.Get(ctx, ModelVersion).String()
	assert.NoError(t, err)
	assert.Equal(t, "1", value)
	value, err = db.Get(ctx, State).String()
	assert.NoError(t, err)
	assert.Equal(t, "Serving", value)
	// Delete string
	err = db.Delete(ctx, ModelVersion)
	assert.NoError(t, err)
	// Get meta not existed
	_, err = db.Get(ctx, ModelVersion).String()
	assert.True(t, errors.Is(err, errors.NotFound), err)
	// Set meta int
	err = db.Set(ctx, Integer(NumRatings, 123))
	assert.NoError(t, err)
	num, err := db.Get(ctx, NumRatings).Integer()
	assert.NoError(t, err)
	assert.Equal(t, 123, num)
	// Set meta float
	err = db.Set(ctx, Float(RMSE, 0.875))
	assert.NoError(t, err)
	rmse, err := db.Get(ctx, RMSE).Float()
	assert.NoError(t, err)
	assert.Equal(t, 0.875, rmse)
	// Set meta time
	ts := time.Date(1996, 4, 8, 10, 0, 0, 0, time.UTC)
	err = db.Set(ctx, Time(LastFitTime, ts))
	assert.NoError(t, err)
	fitTime, err := db.Get(ctx, LastFitTime).Time()
	assert.NoError(t, err)
	assert.True(t, ts.Equal(fitTime))
	// Convert a malformed value
	err = db.Set(ctx, String(NumItems, "many"))
	assert.NoError(t, err)
	_, err = db.Get(ctx, NumItems).Integer()
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	db, err := Open("", "")
	assert.NoError(t, err)
	assert.IsType(t, NoDatabase{}, db)
	_, err = Open("unknown://127.0.0.1", "")
	assert.Error(t, err)
	db, err = Open("redis://127.0.0.1:6379/0", "air_")
	assert.NoError(t, err)
	assert.IsType(t, &Redis{}, db)
	assert.NoError(t, db.Close())
}
