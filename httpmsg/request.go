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
	"strings"

	"github.com/plainhttp/plainhttp/internal/byteseq"
)

// Request 单次 exchange 所属的请求
//
// Body 为惰性字节流 至多消费一次 所有权归当次 exchange
type Request struct {
	Method  string
	Target  string
	Version Version
	Headers *Headers

	// Body 请求体 无 body 时为空迭代器
	Body byteseq.Iterator

	// Params 路由提取出的路径参数 已做百分号解码
	Params map[string]string

	// RawParams 同 Params 但保留原始编码
	RawParams map[string]string

	// Attributes 请求生命周期内的扩展数据
	Attributes *Attributes
}

// Path 返回 target 的 path 部分 不含 query
func (r *Request) Path() string {
	if i := strings.IndexByte(r.Target, '?'); i >= 0 {
		return r.Target[:i]
	}
	return r.Target
}

// Query 返回 target 的原始 query 部分 无则为空串
func (r *Request) Query() string {
	if i := strings.IndexByte(r.Target, '?'); i >= 0 {
		return r.Target[i+1:]
	}
	return ""
}

// BufferedBody 缓冲读取整个 body
//
// 超过 max 字节返回 byteseq.ErrLimitExceeded 由上层映射为 413
func (r *Request) BufferedBody(max int) ([]byte, error) {
	return byteseq.Collect(r.Body, max)
}
