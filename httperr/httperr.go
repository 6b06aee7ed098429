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
	"fmt"

	"github.com/pkg/errors"
)

// Kind 错误类别 决定默认的 HTTP 状态码映射
type Kind int

const (
	KindUnknown Kind = iota

	// KindBadRequest 结构性的非法请求
	KindBadRequest

	// KindRequestLineParse 请求行解析失败
	KindRequestLineParse

	// KindHeaderParse header/trailer 解析失败
	KindHeaderParse

	// KindBadHeader header 语义非法 如冲突的 Content-Length
	KindBadHeader

	// KindIllegalBody 请求不允许携带 body 却携带了 如 TRACE
	KindIllegalBody

	// KindDecoderFailure chunked 解码失败
	KindDecoderFailure

	// KindVersionTooOld 协议版本低于配置下限
	KindVersionTooOld

	// KindVersionTooNew 协议版本过高 HTTP/2.0 token 映射至 505
	KindVersionTooNew

	// KindUnsupportedTransferCoding 末位 transfer coding 不是 chunked
	KindUnsupportedTransferCoding

	// KindMethodNotAllowed 路由存在但未注册该 method
	KindMethodNotAllowed

	// KindNoRouteFound 无匹配路由
	KindNoRouteFound

	// KindUnsupportedMediaType Content-Type 与 handler consumes 不兼容
	KindUnsupportedMediaType

	// KindNotAcceptable Accept 与 handler produces 不兼容
	KindNotAcceptable

	// KindHeadSizeExceeded 请求头超限
	KindHeadSizeExceeded

	// KindBodySizeExceeded 缓冲 body 超限
	KindBodySizeExceeded

	// KindTrailersSizeExceeded trailer 超限
	KindTrailersSizeExceeded

	// KindIllegalResponseBody 状态码禁止 body 的响应携带了 body
	KindIllegalResponseBody

	// KindIdleTimeout 空闲连接超时 不产生响应 直接关闭
	KindIdleTimeout
)

// Error 服务端错误的统一载体
//
// 解析类错误携带现场字节与位置 尺寸类错误携带配置上限
type Error struct {
	Kind Kind
	Msg  string

	// Prev/Curr/Pos/ByteCount 解析失败时的现场
	Prev      byte
	Curr      byte
	Pos       int
	ByteCount int

	// ConfiguredMax 尺寸类错误的配置上限
	ConfiguredMax int

	// Allow 405 响应的 Allow 头内容
	Allow []string

	cause error
}

func (e *Error) Error() string {
	switch {
	case e.ConfiguredMax > 0:
		return fmt.Sprintf("httperr: %s (configured max %d)", e.Msg, e.ConfiguredMax)
	case e.ByteCount > 0:
		return fmt.Sprintf("httperr: %s (prev=%q curr=%q pos=%d count=%d)",
			e.Msg, e.Prev, e.Curr, e.Pos, e.ByteCount)
	}
	return "httperr: " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New 创建指定类别的错误
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并赋予类别
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

// NewParse 创建解析类错误 携带解析现场
func NewParse(kind Kind, msg string, prev, curr byte, pos, byteCount int) *Error {
	return &Error{
		Kind:      kind,
		Msg:       msg,
		Prev:      prev,
		Curr:      curr,
		Pos:       pos,
		ByteCount: byteCount,
	}
}

// NewSize 创建尺寸类错误 携带配置上限
func NewSize(kind Kind, max int) *Error {
	var what string
	switch kind {
	case KindHeadSizeExceeded:
		what = "request head"
	case KindBodySizeExceeded:
		what = "request body buffer"
	case KindTrailersSizeExceeded:
		what = "request trailers"
	default:
		what = "section"
	}
	return &Error{
		Kind:          kind,
		Msg:           fmt.Sprintf("%s exceeds size limit", what),
		ConfiguredMax: max,
	}
}

// KindOf 提取错误类别 非 *Error 链返回 KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// AsError 提取链上的 *Error
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
