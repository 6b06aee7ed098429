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
	"github.com/plainhttp/plainhttp/internal/byteseq"
)

// ErrIllegalResponseBody 状态码不允许携带 body 却设置了 body
var ErrIllegalResponseBody = newError("status code forbids a response body")

// BodyForbidden 返回状态码是否禁止携带 body
func BodyForbidden(status int) bool {
	return (status >= 100 && status < 200) || status == 204 || status == 304
}

// Response 不可变的响应值
//
// 公共状态码的实例会被全局缓存并按引用共享 其余为每次构建的新值
// 流式 body 的实例例外 其只能被写出一次
type Response struct {
	status    int
	reason    string
	headers   *Headers
	body      []byte
	bodyIter  byteseq.Iterator
	bodyLen   int64
	mustClose bool
}

func (r *Response) StatusCode() int {
	return r.status
}

func (r *Response) Reason() string {
	return r.reason
}

// Headers 返回响应头 调用方只读
func (r *Response) Headers() *Headers {
	return r.headers
}

// Interim 返回是否为 1xx 临时响应
func (r *Response) Interim() bool {
	return r.status >= 100 && r.status < 200
}

// BodyLen 返回声明的 body 长度 -1 代表长度未知
func (r *Response) BodyLen() int64 {
	return r.bodyLen
}

func (r *Response) HasBody() bool {
	return r.bodyLen != 0
}

// Body 返回 body 迭代器
//
// 字节形态的 body 每次调用返回新迭代器 流式 body 只能取一次
func (r *Response) Body() byteseq.Iterator {
	if r.bodyIter != nil {
		return r.bodyIter
	}
	if len(r.body) == 0 {
		return byteseq.Empty()
	}
	return byteseq.Of(r.body)
}

// MustClose 返回写出此响应后是否必须关闭连接
func (r *Response) MustClose() bool {
	return r.mustClose || r.headers.ConnectionHas("close")
}

// With 以当前响应为底创建新的 Builder
//
// 用于在缓存响应之上补充 header 原值不受影响
func (r *Response) With() *Builder {
	return &Builder{resp: Response{
		status:    r.status,
		reason:    r.reason,
		headers:   r.headers.Clone(),
		body:      r.body,
		bodyIter:  r.bodyIter,
		bodyLen:   r.bodyLen,
		mustClose: r.mustClose,
	}}
}

// Builder 响应构建器
//
// 链式调用 错误沉淀至 Build 统一返回
type Builder struct {
	resp Response
	err  error
}

// NewResponse 创建状态码为 status 的 Builder
func NewResponse(status int) *Builder {
	b := &Builder{resp: Response{
		status:  status,
		reason:  ReasonPhrase(status),
		headers: NewHeaders(),
	}}
	if status < 100 || status > 999 {
		b.err = newError("status code %d out of range", status)
	}
	return b
}

// Reason 覆盖原因短语
func (b *Builder) Reason(s string) *Builder {
	b.resp.reason = s
	return b
}

// Header 追加一个响应头
func (b *Builder) Header(name, value string) *Builder {
	b.resp.headers.Add(name, value)
	return b
}

// SetHeader 以单值覆盖同名响应头
func (b *Builder) SetHeader(name, value string) *Builder {
	b.resp.headers.Set(name, value)
	return b
}

// Body 设置字节形态的 body
func (b *Builder) Body(p []byte) *Builder {
	b.resp.body = p
	b.resp.bodyIter = nil
	b.resp.bodyLen = int64(len(p))
	return b
}

// BodyStream 设置流式 body length < 0 代表长度未知 将以 chunked 写出
func (b *Builder) BodyStream(it byteseq.Iterator, length int64) *Builder {
	b.resp.body = nil
	b.resp.bodyIter = it
	b.resp.bodyLen = length
	return b
}

// MustClose 标记响应写出后必须关闭连接
func (b *Builder) MustClose() *Builder {
	b.resp.mustClose = true
	return b
}

// Build 校验并返回不可变响应
//
// 禁止携带 body 的状态码设置了 body 时立刻失败
func (b *Builder) Build() (*Response, error) {
	if b.err != nil {
		return nil, b.err
	}
	if BodyForbidden(b.resp.status) && b.resp.bodyLen != 0 {
		return nil, ErrIllegalResponseBody
	}
	resp := b.resp
	return &resp, nil
}

// MustBuild 同 Build 失败时 panic 仅用于编译期可证明合法的场合
func (b *Builder) MustBuild() *Response {
	resp, err := b.Build()
	if err != nil {
		panic(err)
	}
	return resp
}
