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
	"strings"

	"github.com/plainhttp/plainhttp/httpmsg"
)

// Status 返回错误类别的默认状态码映射
func Status(kind Kind) int {
	switch kind {
	case KindBadRequest, KindRequestLineParse, KindHeaderParse,
		KindBadHeader, KindIllegalBody, KindDecoderFailure:
		return 400
	case KindVersionTooOld:
		return 426
	case KindVersionTooNew:
		return 505
	case KindUnsupportedTransferCoding:
		return 501
	case KindMethodNotAllowed:
		return 405
	case KindNoRouteFound:
		return 404
	case KindUnsupportedMediaType:
		return 415
	case KindNotAcceptable:
		return 406
	case KindHeadSizeExceeded, KindBodySizeExceeded, KindTrailersSizeExceeded:
		return 413
	}
	return 500
}

// Respond 中央错误映射 将任意错误转换为响应
//
// 空闲超时不产生响应 返回 nil 由连接直接关闭
// 非 *Error 链走兜底的 500
func Respond(err error) *httpmsg.Response {
	e, ok := AsError(err)
	if !ok {
		return httpmsg.Of(500)
	}
	if e.Kind == KindIdleTimeout {
		return nil
	}

	resp := httpmsg.Of(Status(e.Kind))
	if e.Kind == KindMethodNotAllowed && len(e.Allow) > 0 {
		resp = resp.With().SetHeader("Allow", strings.Join(e.Allow, ", ")).MustBuild()
	}
	return resp
}
