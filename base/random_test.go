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
	"math"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

const randomEpsilon = 0.1

func meanAndStd(values []float32) (float64, float64) {
	mean := float64(lo.Sum(values)) / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (float64(v) - mean) * (float64(v) - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

func TestRandomGenerator_NormalVector(t *testing.T) {
	rng := NewRandomGenerator(1)
	vec := rng.NormalVector(10000, 1, 2)
	mean, std := meanAndStd(vec)
	assert.InDelta(t, 1, mean, randomEpsilon)
	assert.InDelta(t, 2, std, randomEpsilon)
}

func TestRandomGenerator_NormalMatrix(t *testing.T) {
	rng := NewRandomGenerator(1)
	mat := rng.NormalMatrix(100, 100, 1, 2)
	assert.Len(t, mat, 100)
	mean, std := meanAndStd(lo.Flatten(mat))
	assert.InDelta(t, 1, mean, randomEpsilon)
	assert.InDelta(t, 2, std, randomEpsilon)
}

func TestRandomGenerator_Seed(t *testing.T) {
	a := NewRandomGenerator(42).NormalVector(10, 0, 1)
	b := NewRandomGenerator(42).NormalVector(10, 0, 1)
	assert.Equal(t, a, b)
}

func TestRandomGenerator_Permutation(t *testing.T) {
	rng := NewRandomGenerator(1)
	perm := rng.Permutation(100)
	assert.Len(t, perm, 100)
	assert.ElementsMatch(t, lo.Range(100), lo.Map(perm, func(v int32, _ int) int { return int(v) }))
}
