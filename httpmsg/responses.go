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
	"fmt"

	"github.com/goccy/go-json"

	"github.com/plainhttp/plainhttp/mediatype"
)

// cachedStatuses 预构建的公共状态码
var cachedStatuses = []int{
	100, 102, 200, 202, 204,
	400, 403, 404, 405, 406, 408, 412, 413, 415, 418, 426,
	500, 501, 503, 505,
}

// closingStatuses 缓存值直接携带 Connection: close 的状态码
var closingStatuses = map[int]bool{
	400: true,
	408: true,
	413: true,
	503: true,
}

var cached = func() map[int]*Response {
	m := make(map[int]*Response, len(cachedStatuses))
	for _, status := range cachedStatuses {
		b := NewResponse(status)
		if closingStatuses[status] {
			b.SetHeader("Connection", "close").MustClose()
		}
		if status == 426 {
			b.SetHeader("Upgrade", "HTTP/1.1")
			b.SetHeader("Connection", "upgrade")
		}
		m[status] = b.MustBuild()
	}
	return m
}()

// Of 返回状态码对应的响应 公共状态码命中全局缓存
func Of(status int) *Response {
	if r, ok := cached[status]; ok {
		return r
	}
	return NewResponse(status).MustBuild()
}

func contentType(mt mediatype.MediaType, charset string) string {
	return fmt.Sprintf("%s/%s; charset=%s", mt.Type, mt.Subtype, charset)
}

// Text 构建 text/plain 响应 charset 固定为 utf-8
func Text(status int, body string) *Response {
	return NewResponse(status).
		SetHeader("Content-Type", contentType(mediatype.TextPlain, "utf-8")).
		Body([]byte(body)).
		MustBuild()
}

// HTML 构建 text/html 响应
func HTML(status int, body string) *Response {
	return NewResponse(status).
		SetHeader("Content-Type", contentType(mediatype.TextHTML, "utf-8")).
		Body([]byte(body)).
		MustBuild()
}

// JSON 构建 application/json 响应
func JSON(status int, v any) (*Response, error) {
	p, err := json.Marshal(v)
	if err != nil {
		return nil, newError("marshal response body: %v", err)
	}
	return NewResponse(status).
		SetHeader("Content-Type", contentType(mediatype.ApplicationJSON, "utf-8")).
		Body(p).
		Build()
}

// charsetOffers 内容协商的候选 charset 按服务端偏好排序
var charsetOffers = []string{"utf-8", "us-ascii", "iso-8859-1"}

// negotiateCharset 依据请求 Accept 头选出最合适的 charset
//
// 无可用项或选中的 charset 无法编码 body 时回退 utf-8
func negotiateCharset(req *Request, mt mediatype.MediaType, body string) (string, []byte) {
	ranges := mediatype.ParseAccept(req.Headers.Values("Accept"))
	if len(ranges) == 0 {
		return "utf-8", []byte(body)
	}

	offers := make([]mediatype.MediaType, 0, len(charsetOffers))
	for _, cs := range charsetOffers {
		offers = append(offers, mediatype.MediaType{
			Type:    mt.Type,
			Subtype: mt.Subtype,
			Params:  []mediatype.Param{{Name: "charset", Value: cs}},
		})
	}

	best, _, ok := mediatype.Negotiate(offers, ranges)
	if !ok {
		return "utf-8", []byte(body)
	}
	cs, _ := best.Param("charset")
	if p, ok := encode(body, cs); ok {
		return cs, p
	}
	return "utf-8", []byte(body)
}

// encode 尝试以指定 charset 编码
func encode(s, charset string) ([]byte, bool) {
	switch charset {
	case "utf-8":
		return []byte(s), true
	case "us-ascii":
		for i := 0; i < len(s); i++ {
			if s[i] >= 0x80 {
				return nil, false
			}
		}
		return []byte(s), true
	case "iso-8859-1":
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r > 0xFF {
				return nil, false
			}
			out = append(out, byte(r))
		}
		return out, true
	}
	return nil, false
}

// NegotiatedText 构建 charset 经过内容协商的 text/plain 响应
func NegotiatedText(status int, req *Request, body string) *Response {
	cs, p := negotiateCharset(req, mediatype.TextPlain, body)
	return NewResponse(status).
		SetHeader("Content-Type", contentType(mediatype.TextPlain, cs)).
		Body(p).
		MustBuild()
}

// NegotiatedHTML 构建 charset 经过内容协商的 text/html 响应
func NegotiatedHTML(status int, req *Request, body string) *Response {
	cs, p := negotiateCharset(req, mediatype.TextHTML, body)
	return NewResponse(status).
		SetHeader("Content-Type", contentType(mediatype.TextHTML, cs)).
		Body(p).
		MustBuild()
}
