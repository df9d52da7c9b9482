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
	"math"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/transit/storage/data"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trains() []data.Item {
	return []data.Item{
		{ItemId: "12301", Mode: data.Rail, Origin: "Delhi", Destination: "Howrah", Name: "Rajdhani", Meta: map[string]any{"station_name": "New Delhi"}},
		{ItemId: "12302", Mode: data.Rail, Origin: "Howrah", Destination: "Delhi", Name: "Rajdhani", Meta: map[string]any{"station_name": "Howrah Jn"}},
		{ItemId: "12303", Mode: data.Rail, Origin: "delhi", Destination: "Patna", Name: "Poorva", Meta: map[string]any{"station_name": "New Delhi"}},
		{ItemId: "12304", Mode: data.Rail, Origin: "Delhi", Destination: "Howrah", Name: "Duronto", Meta: map[string]any{"station_name": "New Delhi"}},
		{ItemId: "12305", Mode: data.Rail, Origin: "Mumbai", Destination: "Pune", Name: "Deccan"},
	}
}

func TestRecommendSimilar(t *testing.T) {
	s := NewSnapshot(data.Rail, trains(), nil, nil)
	result, err := s.RecommendSimilar("12301", 10)
	require.NoError(t, err)
	assert.Equal(t, "12301", result.ItemId)
	assert.Equal(t, data.Rail, result.Mode)
	assert.Equal(t, []string{"12304", "12303", "12302", "12305"}, ids(result.Recommendations))
	// top n
	result, err = s.RecommendSimilar("12301", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"12304"}, ids(result.Recommendations))
}

func TestRecommendSimilar_Errors(t *testing.T) {
	s := NewSnapshot(data.Rail, trains(), nil, nil)
	_, err := s.RecommendSimilar("", 5)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = s.RecommendSimilar("99999", 5)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestCosine(t *testing.T) {
	a := mapset.NewSet("origin=delhi", "destination=howrah", "station=new delhi")
	b := mapset.NewSet("origin=delhi", "destination=patna", "station=new delhi")
	assert.InDelta(t, 2.0/3, cosine(a, b), 1e-9)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-9)
	assert.Zero(t, cosine(a, mapset.NewSet[string]()))
	c := mapset.NewSet("origin=delhi", "destination=howrah")
	assert.InDelta(t, 2/math.Sqrt(6), cosine(a, c), 1e-9)
}
