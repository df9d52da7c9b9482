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

package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteVector(t *testing.T) {
	a := []float32{1, 2, 3}
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteVector(buf, a))
	assert.NoError(t, WriteVector(buf, nil))
	b, err := ReadVector(buf)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
	b, err = ReadVector(buf)
	assert.NoError(t, err)
	assert.Empty(t, b)
	_, err = ReadVector(buf)
	assert.Error(t, err)
}

func TestWriteMatrix(t *testing.T) {
	a := [][]float32{{1, 2}, {3, 4}, {5, 6}}
	buf := bytes.NewBuffer(nil)
	err := WriteMatrix(buf, a)
	assert.NoError(t, err)
	b, err := ReadMatrix(buf)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriteBytes(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteBytes(buf, []byte("abc")))
	b, err := ReadBytes(buf)
	assert.NoError(t, err)
	assert.Equal(t, []byte("abc"), b)
	// truncated stream
	buf = bytes.NewBuffer(nil)
	assert.NoError(t, WriteBytes(buf, []byte("abc")))
	buf.Truncate(5)
	_, err = ReadBytes(buf)
	assert.Error(t, err)
}

func TestWriteGob(t *testing.T) {
	a := map[string]int{"a": 1, "b": 2}
	buf := bytes.NewBuffer(nil)
	err := WriteGob(buf, a)
	assert.NoError(t, err)
	var b map[string]int
	err = ReadGob(buf, &b)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}
