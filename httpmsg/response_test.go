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

package httpmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plainhttp/plainhttp/internal/byteseq"
)

func TestBuilder(t *testing.T) {
	resp, err := NewResponse(200).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		Body([]byte("John")).
		Build()
	assert.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "OK", resp.Reason())
	assert.Equal(t, int64(4), resp.BodyLen())

	got, err := byteseq.Collect(resp.Body(), 0)
	assert.NoError(t, err)
	assert.Equal(t, "John", string(got))

	// 字节形态的 body 可以重复取用
	got, err = byteseq.Collect(resp.Body(), 0)
	assert.NoError(t, err)
	assert.Equal(t, "John", string(got))
}

func TestBuilderRejectsIllegalBody(t *testing.T) {
	for _, status := range []int{100, 101, 204, 304} {
		_, err := NewResponse(status).Body([]byte("x")).Build()
		assert.ErrorIs(t, err, ErrIllegalResponseBody, "status %d", status)
	}

	// 流式且长度未知同样被拒绝
	_, err := NewResponse(204).BodyStream(byteseq.Empty(), -1).Build()
	assert.ErrorIs(t, err, ErrIllegalResponseBody)
}

func TestBuilderStatusRange(t *testing.T) {
	_, err := NewResponse(99).Build()
	assert.Error(t, err)
	_, err = NewResponse(1000).Build()
	assert.Error(t, err)
}

func TestCachedResponses(t *testing.T) {
	// 公共状态码按引用共享
	assert.Same(t, Of(404), Of(404))
	assert.Same(t, Of(200), Of(200))

	// 非缓存状态码每次新建
	assert.NotSame(t, Of(201), Of(201))

	for _, status := range []int{400, 408, 413, 503} {
		resp := Of(status)
		assert.True(t, resp.MustClose(), "status %d", status)
		assert.True(t, resp.Headers().ConnectionHas("close"), "status %d", status)
	}

	resp := Of(426)
	v, _ := resp.Headers().Get("Upgrade")
	assert.Equal(t, "HTTP/1.1", v)
	assert.True(t, resp.Headers().ConnectionHas("upgrade"))
}

func TestWithDoesNotMutateOriginal(t *testing.T) {
	base := Of(405)
	derived := base.With().SetHeader("Allow", "GET").MustBuild()

	_, ok := base.Headers().Get("Allow")
	assert.False(t, ok)

	v, _ := derived.Headers().Get("Allow")
	assert.Equal(t, "GET", v)
}

func TestTextFactories(t *testing.T) {
	resp := Text(200, "hi")
	ct, _ := resp.Headers().Get("Content-Type")
	assert.Equal(t, "text/plain; charset=utf-8", ct)
	assert.Equal(t, int64(2), resp.BodyLen())

	resp = HTML(200, "<p>hi</p>")
	ct, _ = resp.Headers().Get("Content-Type")
	assert.Equal(t, "text/html; charset=utf-8", ct)
}

func TestJSONFactory(t *testing.T) {
	resp, err := JSON(200, map[string]int{"n": 1})
	assert.NoError(t, err)

	ct, _ := resp.Headers().Get("Content-Type")
	assert.Equal(t, "application/json; charset=utf-8", ct)

	got, err := byteseq.Collect(resp.Body(), 0)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(got))
}

func negotiationRequest(accept string) *Request {
	h := NewHeaders()
	if accept != "" {
		h.Add("Accept", accept)
	}
	return &Request{
		Method:     "GET",
		Target:     "/",
		Version:    HTTP11,
		Headers:    h,
		Body:       byteseq.Empty(),
		Attributes: NewAttributes(),
	}
}

func TestNegotiatedText(t *testing.T) {
	tests := []struct {
		name        string
		accept      string
		body        string
		wantCharset string
	}{
		{
			name:        "NoAcceptFallsBackUTF8",
			accept:      "",
			body:        "hi",
			wantCharset: "utf-8",
		},
		{
			name:        "AsciiRequested",
			accept:      "text/plain; charset=us-ascii",
			body:        "hi",
			wantCharset: "us-ascii",
		},
		{
			name:        "AsciiCannotEncodeFallsBack",
			accept:      "text/plain; charset=us-ascii",
			body:        "héllo",
			wantCharset: "utf-8",
		},
		{
			name:        "NoCompatibleCharsetFallsBack",
			accept:      "application/json",
			body:        "hi",
			wantCharset: "utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NegotiatedText(200, negotiationRequest(tt.accept), tt.body)
			ct, _ := resp.Headers().Get("Content-Type")
			assert.Equal(t, "text/plain; charset="+tt.wantCharset, ct)
		})
	}
}
