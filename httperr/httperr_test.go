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

package httperr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{kind: KindBadRequest, want: 400},
		{kind: KindRequestLineParse, want: 400},
		{kind: KindHeaderParse, want: 400},
		{kind: KindBadHeader, want: 400},
		{kind: KindIllegalBody, want: 400},
		{kind: KindDecoderFailure, want: 400},
		{kind: KindVersionTooOld, want: 426},
		{kind: KindVersionTooNew, want: 505},
		{kind: KindUnsupportedTransferCoding, want: 501},
		{kind: KindMethodNotAllowed, want: 405},
		{kind: KindNoRouteFound, want: 404},
		{kind: KindUnsupportedMediaType, want: 415},
		{kind: KindNotAcceptable, want: 406},
		{kind: KindHeadSizeExceeded, want: 413},
		{kind: KindBodySizeExceeded, want: 413},
		{kind: KindTrailersSizeExceeded, want: 413},
		{kind: KindIllegalResponseBody, want: 500},
		{kind: KindUnknown, want: 500},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.kind))
	}
}

func TestRespond(t *testing.T) {
	t.Run("SizeExceededCarriesClose", func(t *testing.T) {
		resp := Respond(NewSize(KindHeadSizeExceeded, 100))
		assert.Equal(t, 413, resp.StatusCode())
		assert.True(t, resp.Headers().ConnectionHas("close"))
	})

	t.Run("VersionTooOldCarriesUpgrade", func(t *testing.T) {
		resp := Respond(New(KindVersionTooOld, "too old"))
		assert.Equal(t, 426, resp.StatusCode())
		v, _ := resp.Headers().Get("Upgrade")
		assert.Equal(t, "HTTP/1.1", v)
		assert.True(t, resp.Headers().ConnectionHas("upgrade"))
	})

	t.Run("MethodNotAllowedCarriesAllow", func(t *testing.T) {
		e := New(KindMethodNotAllowed, "nope")
		e.Allow = []string{"GET", "HEAD"}
		resp := Respond(e)
		assert.Equal(t, 405, resp.StatusCode())
		v, _ := resp.Headers().Get("Allow")
		assert.Equal(t, "GET, HEAD", v)
	})

	t.Run("IdleTimeoutHasNoResponse", func(t *testing.T) {
		assert.Nil(t, Respond(New(KindIdleTimeout, "idle")))
	})

	t.Run("UnknownErrorFallsBack500", func(t *testing.T) {
		resp := Respond(errors.New("boom"))
		assert.Equal(t, 500, resp.StatusCode())
	})

	t.Run("WrappedErrorKeepsKind", func(t *testing.T) {
		err := errors.Wrap(New(KindNoRouteFound, "missing"), "lookup")
		resp := Respond(err)
		assert.Equal(t, 404, resp.StatusCode())
	})
}

func TestParseErrorContext(t *testing.T) {
	e := NewParse(KindHeaderParse, "bad byte", 'a', ':', 12, 40)
	assert.Equal(t, byte('a'), e.Prev)
	assert.Equal(t, byte(':'), e.Curr)
	assert.Equal(t, 12, e.Pos)
	assert.Equal(t, 40, e.ByteCount)
	assert.Contains(t, e.Error(), "pos=12")
}
