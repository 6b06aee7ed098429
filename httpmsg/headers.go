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
	"strconv"
	"strings"

	"github.com/intuitivelabs/bytescase"
	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "httpmsg: " + format
	return errors.Errorf(format, args...)
}

// Field 单个 header 字段 保留原始大小写
type Field struct {
	Name  string
	Value string
}

// Headers 有序且 name 大小写不敏感的多值映射
//
// 同名字段按写入顺序保留 value 永远保持原始大小写
type Headers struct {
	fields []Field
}

func NewHeaders() *Headers {
	return &Headers{}
}

// nameEq name 大小写不敏感比较
func nameEq(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return bytescase.CmpEq([]byte(a), []byte(b))
}

// Add 追加一个字段
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Set 以单值覆盖同名字段 原有同名字段全部删除 新字段追加至末尾
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del 删除所有同名字段
func (h *Headers) Del(name string) {
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !nameEq(f.Name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// Get 返回首个同名字段的值
func (h *Headers) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if nameEq(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values 按序返回所有同名字段的值
func (h *Headers) Values(name string) []string {
	var vs []string
	for _, f := range h.fields {
		if nameEq(f.Name, name) {
			vs = append(vs, f.Value)
		}
	}
	return vs
}

func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Len 返回字段总数 含重复 name
func (h *Headers) Len() int {
	return len(h.fields)
}

// Fields 返回底层字段切片 调用方只读
func (h *Headers) Fields() []Field {
	return h.fields
}

// Clone 深拷贝
func (h *Headers) Clone() *Headers {
	c := &Headers{fields: make([]Field, len(h.fields))}
	copy(c.fields, h.fields)
	return c
}

// tokens 将所有同名字段值按逗号切开并裁剪空白
func (h *Headers) tokens(name string) []string {
	var out []string
	for _, v := range h.Values(name) {
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// ContentLength 解析 Content-Length
//
// 多个值一致时按单值处理 不一致或无法解析返回错误
// 第二个返回值代表是否存在该字段
func (h *Headers) ContentLength() (int64, bool, error) {
	vs := h.Values("Content-Length")
	if len(vs) == 0 {
		return 0, false, nil
	}
	first := strings.TrimSpace(vs[0])
	for _, v := range vs[1:] {
		if strings.TrimSpace(v) != first {
			return 0, true, newError("conflicting Content-Length values")
		}
	}
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil || n < 0 {
		return 0, true, newError("unparseable Content-Length %q", first)
	}
	return n, true, nil
}

// TransferEncoding 返回 Transfer-Encoding 的 coding 列表
func (h *Headers) TransferEncoding() []string {
	return h.tokens("Transfer-Encoding")
}

// IsChunked 返回末位 transfer coding 是否为 chunked
func (h *Headers) IsChunked() bool {
	te := h.TransferEncoding()
	return len(te) > 0 && nameEq(te[len(te)-1], "chunked")
}

// ConnectionHas 返回 Connection 字段是否携带指定 token
func (h *Headers) ConnectionHas(token string) bool {
	for _, t := range h.tokens("Connection") {
		if nameEq(t, token) {
			return true
		}
	}
	return false
}

// Expects100Continue 返回是否声明了 Expect: 100-continue
func (h *Headers) Expects100Continue() bool {
	for _, t := range h.tokens("Expect") {
		if nameEq(t, "100-continue") {
			return true
		}
	}
	return false
}
