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

package headparse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plainhttp/plainhttp/httperr"
	"github.com/plainhttp/plainhttp/internal/byteseq"
)

// fragmented 将输入逐字节切成独立 chunk 模拟最碎的网络到达
func fragmented(s string) *byteseq.Cursor {
	chunks := make([][]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		chunks = append(chunks, []byte{s[i]})
	}
	return byteseq.NewCursor(byteseq.Of(chunks...))
}

func whole(s string) *byteseq.Cursor {
	return byteseq.NewCursor(byteseq.Of([]byte(s)))
}

func TestRequestLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RequestLine
		wantErr bool
	}{
		{
			name:  "Simple",
			input: "GET /index.html HTTP/1.1\r\n",
			want:  RequestLine{Method: "GET", Target: "/index.html", Version: "HTTP/1.1"},
		},
		{
			name:  "BareLF",
			input: "GET / HTTP/1.0\n",
			want:  RequestLine{Method: "GET", Target: "/", Version: "HTTP/1.0"},
		},
		{
			name:  "LeadingEmptyLinesSkipped",
			input: "\r\n\r\nPOST /echo HTTP/1.1\r\n",
			want:  RequestLine{Method: "POST", Target: "/echo", Version: "HTTP/1.1"},
		},
		{
			name:    "TwoTokens",
			input:   "GET /\r\n",
			wantErr: true,
		},
		{
			name:    "FourTokens",
			input:   "GET / HTTP/1.1 extra\r\n",
			wantErr: true,
		},
		{
			name:    "EmptyToken",
			input:   "GET  / HTTP/1.1\r\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, cur := range []*byteseq.Cursor{whole(tt.input), fragmented(tt.input)} {
				p := NewParser(cur, 0)
				got, err := p.RequestLine()
				if tt.wantErr {
					assert.Error(t, err)
					assert.Equal(t, httperr.KindRequestLineParse, httperr.KindOf(err))
					continue
				}
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRequestLineCleanClose(t *testing.T) {
	p := NewParser(whole(""), 0)
	_, err := p.RequestLine()
	assert.ErrorIs(t, err, byteseq.ErrEndOfStream)
}

func TestHeaders(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string][]string
	}{
		{
			name:  "EmptySection",
			input: "\r\n",
			want:  map[string][]string{},
		},
		{
			name:  "Simple",
			input: "Host: example.com\r\nAccept: text/plain\r\n\r\n",
			want: map[string][]string{
				"Host":   {"example.com"},
				"Accept": {"text/plain"},
			},
		},
		{
			name:  "FoldingAndDuplicates",
			input: "Name: Line 1\r\n  Line 2\r\nFoo:\r\nFoo: world\r\nFoo: again\r\n\r\n",
			want: map[string][]string{
				"Name": {"Line 1 Line 2"},
				"Foo":  {"", "world", "again"},
			},
		},
		{
			name:  "ValueTrimmed",
			input: "Key:    spaced value   \r\n\r\n",
			want: map[string][]string{
				"Key": {"spaced value"},
			},
		},
		{
			name:  "BareLFLines",
			input: "A: 1\nB: 2\n\n",
			want: map[string][]string{
				"A": {"1"},
				"B": {"2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, cur := range []*byteseq.Cursor{whole(tt.input), fragmented(tt.input)} {
				p := NewParser(cur, 0)
				headers, err := p.Headers()
				assert.NoError(t, err)

				for name, values := range tt.want {
					assert.Equal(t, values, headers.Values(name), "header %s", name)
				}
			}
		})
	}
}

func TestHeadersErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "EmptyName",
			input: ": value\r\n\r\n",
		},
		{
			name:  "WhitespaceInName",
			input: "Bad Name: value\r\n\r\n",
		},
		{
			name:  "WhitespaceBeforeColon",
			input: "Name : value\r\n\r\n",
		},
		{
			name:  "FoldBeforeAnyHeader",
			input: "  folded\r\n\r\n",
		},
		{
			name:  "LineWithoutColon",
			input: "NoColonHere\r\n\r\n",
		},
		{
			name:  "PrematureEnd",
			input: "Host: example.com\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(whole(tt.input), 0)
			_, err := p.Headers()
			assert.Error(t, err)
			assert.Equal(t, httperr.KindHeaderParse, httperr.KindOf(err))
		})
	}
}

func TestHeadSizeGuard(t *testing.T) {
	input := "GET /a/very/long/path HTTP/1.1\r\nHost: example.com\r\n\r\n"

	t.Run("WithinLimit", func(t *testing.T) {
		p := NewParser(whole(input), len(input))
		_, err := p.RequestLine()
		assert.NoError(t, err)
		_, err = p.Headers()
		assert.NoError(t, err)
	})

	t.Run("Exceeded", func(t *testing.T) {
		p := NewParser(whole(input), 10)
		_, err := p.RequestLine()
		assert.Error(t, err)
		assert.Equal(t, httperr.KindHeadSizeExceeded, httperr.KindOf(err))

		e, ok := httperr.AsError(err)
		assert.True(t, ok)
		assert.Equal(t, 10, e.ConfiguredMax)
	})
}

func TestParseTrailers(t *testing.T) {
	cur := whole("Checksum: abc\r\n\r\n")
	trailers, err := ParseTrailers(cur, 8000)
	assert.NoError(t, err)

	v, ok := trailers.Get("checksum")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestParseErrorContext(t *testing.T) {
	p := NewParser(whole("GET /\r\n"), 0)
	_, err := p.RequestLine()
	assert.Error(t, err)

	e, ok := httperr.AsError(err)
	assert.True(t, ok)
	assert.Greater(t, e.ByteCount, 0)
}
