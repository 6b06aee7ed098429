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

package router

import (
	"sort"

	"github.com/plainhttp/plainhttp/httperr"
	"github.com/plainhttp/plainhttp/httpmsg"
	"github.com/plainhttp/plainhttp/mediatype"
)

// HandlerFunc 常规 handler 签名 返回一个最终响应
type HandlerFunc func(req *httpmsg.Request) (*httpmsg.Response, error)

// RawHandlerFunc 流式 handler 签名 可自行写出临时与最终响应
type RawHandlerFunc func(req *httpmsg.Request, w httpmsg.ChannelWriter) error

// Handler 挂载在路由某个 method 上的处理单元
//
// Consumes/Produces 为空代表不限
type Handler struct {
	Fn       HandlerFunc
	RawFn    RawHandlerFunc
	Consumes []mediatype.MediaType
	Produces []mediatype.MediaType
}

// Route 一条注册的路由
//
// 注册之后到移除之前持续存活 handler 集合注册期写入 此后只读
type Route struct {
	pattern  string
	segs     []segment
	handlers map[string][]*Handler
}

// NewRoute 按模式创建路由
func NewRoute(pattern string) (*Route, error) {
	segs, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &Route{
		pattern:  pattern,
		segs:     segs,
		handlers: make(map[string][]*Handler),
	}, nil
}

// MustNewRoute 同 NewRoute 模式非法时 panic
func MustNewRoute(pattern string) *Route {
	rt, err := NewRoute(pattern)
	if err != nil {
		panic(err)
	}
	return rt
}

func (rt *Route) Pattern() string {
	return rt.pattern
}

// On 在 method 上挂载 handler
func (rt *Route) On(method string, h *Handler) *Route {
	rt.handlers[method] = append(rt.handlers[method], h)
	return rt
}

// Handle 挂载常规 handler 的便捷方法
func (rt *Route) Handle(method string, fn HandlerFunc) *Route {
	return rt.On(method, &Handler{Fn: fn})
}

// Methods 返回已注册的 method 集合 按字典序
func (rt *Route) Methods() []string {
	ms := make([]string, 0, len(rt.handlers))
	for m := range rt.handlers {
		ms = append(ms, m)
	}
	sort.Strings(ms)
	return ms
}

// HasMethod 返回 method 是否已注册
func (rt *Route) HasMethod(method string) bool {
	return len(rt.handlers[method]) > 0
}

// paramCount 参数段数量 含 catch-all
func (rt *Route) paramCount() int {
	n := 0
	for _, s := range rt.segs {
		if s.kind != segStatic {
			n++
		}
	}
	return n
}

// equivalent 模式等价判定 参数名不参与比较
func (rt *Route) equivalent(segs []segment) bool {
	if len(rt.segs) != len(segs) {
		return false
	}
	for i, s := range rt.segs {
		o := segs[i]
		if s.kind != o.kind {
			return false
		}
		if s.kind == segStatic && s.name != o.name {
			return false
		}
	}
	return true
}

// Resolve 按 method 与媒体类型选出 handler
//
// method 未注册返回 405 并携带 Allow 集合
// Content-Type 与所有 consumes 不兼容返回 415 Accept 与所有 produces 不兼容返回 406
func (rt *Route) Resolve(method string, contentType *mediatype.MediaType, accepts []mediatype.MediaRange) (*Handler, error) {
	hs := rt.handlers[method]
	if len(hs) == 0 {
		e := httperr.New(httperr.KindMethodNotAllowed, "method %s not allowed on %s", method, rt.pattern)
		e.Allow = rt.Methods()
		return nil, e
	}

	// 按 Content-Type 过滤 consumes 为空的 handler 接受一切
	var candidates []*Handler
	for _, h := range hs {
		if len(h.Consumes) == 0 || contentType == nil {
			candidates = append(candidates, h)
			continue
		}
		r := mediatype.MediaRange{MediaType: *contentType, Q: 1.0}
		for _, c := range h.Consumes {
			if mediatype.Compatibility(c, r) != mediatype.Nope {
				candidates = append(candidates, h)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return nil, httperr.New(httperr.KindUnsupportedMediaType,
			"content type %s not consumed by %s %s", contentType, method, rt.pattern)
	}

	// 按 Accept 选出 produces 兼容度最高的 handler
	if len(accepts) == 0 {
		accepts = []mediatype.MediaRange{{MediaType: mediatype.All, Q: 1.0}}
	}
	var best *Handler
	bestScore := mediatype.Nope
	bestQ := -1.0
	for _, h := range candidates {
		if len(h.Produces) == 0 {
			if best == nil {
				best = h
			}
			continue
		}
		for _, p := range h.Produces {
			for _, r := range accepts {
				s := mediatype.Compatibility(p, r)
				if s == mediatype.Nope {
					continue
				}
				if s > bestScore || (s == bestScore && r.Q > bestQ) {
					best, bestScore, bestQ = h, s, r.Q
				}
			}
		}
	}
	if best == nil {
		return nil, httperr.New(httperr.KindNotAcceptable,
			"no acceptable representation for %s %s", method, rt.pattern)
	}
	return best, nil
}
