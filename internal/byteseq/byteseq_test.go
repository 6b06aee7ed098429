// Copyright 2025 The plainhttp Authors
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

package byteseq

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name   string
		chunks [][]byte
		want   []byte
	}{
		{
			name:   "Empty",
			chunks: nil,
			want:   nil,
		},
		{
			name:   "SingleChunk",
			chunks: [][]byte{[]byte("hello")},
			want:   []byte("hello"),
		},
		{
			name:   "SkipsEmptyChunks",
			chunks: [][]byte{[]byte("a"), {}, []byte("b")},
			want:   []byte("ab"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := Of(tt.chunks...)
			got, err := Collect(it, 0)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIteratorExhausted(t *testing.T) {
	it := Of([]byte("x"))

	assert.True(t, it.HasNext())
	_, err := it.Next()
	assert.NoError(t, err)

	assert.False(t, it.HasNext())
	_, err = it.Next()
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestCollectLimit(t *testing.T) {
	it := Of([]byte("hello"), []byte("world"))
	_, err := Collect(it, 6)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestFromReader(t *testing.T) {
	it := FromReader(strings.NewReader("abcdefgh"), 3)

	var got []byte
	err := ForEachRemaining(it, func(p []byte) error {
		got = append(got, p...)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []byte("abcdefgh"), got)
}

func TestCursorNextByte(t *testing.T) {
	cur := NewCursor(Of([]byte("ab"), []byte("c")))

	var got []byte
	for {
		b, err := cur.NextByte()
		if err != nil {
			assert.ErrorIs(t, err, ErrEndOfStream)
			break
		}
		got = append(got, b)
	}
	assert.Equal(t, []byte("abc"), got)
}

func TestCursorMixedGranularity(t *testing.T) {
	cur := NewCursor(Of([]byte("head|bodybody")))

	// 字节粒度消费至分隔符
	for {
		b, err := cur.NextByte()
		assert.NoError(t, err)
		if b == '|' {
			break
		}
	}

	// 剩余部分按块消费
	var rest []byte
	for {
		b, err := cur.ReadChunk(4)
		if err != nil {
			break
		}
		rest = append(rest, b...)
	}
	assert.Equal(t, []byte("bodybody"), rest)
}

func TestFixedLength(t *testing.T) {
	t.Run("ExactLength", func(t *testing.T) {
		cur := NewCursor(Of([]byte("JohnRest")))
		it := NewFixedLength(cur, 4, 2)

		got, err := Collect(it, 0)
		assert.NoError(t, err)
		assert.Equal(t, []byte("John"), got)

		// 余下的字节仍属于游标
		b, err := cur.ReadChunk(16)
		assert.NoError(t, err)
		assert.True(t, bytes.Equal([]byte("Rest"), b))
	})

	t.Run("PrematureEnd", func(t *testing.T) {
		cur := NewCursor(Of([]byte("Jo")))
		it := NewFixedLength(cur, 4, 16)

		_, err := it.Next()
		assert.NoError(t, err)
		_, err = it.Next()
		assert.ErrorIs(t, err, ErrPrematureEnd)
	})
}
