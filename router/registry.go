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

// Package router 实现按 URL 段组织的路由注册表
//
// 静态段 单段参数与余路径参数分属不同的位置类型
// 同一节点至多一个参数子节点与一个余路径子节点 后者必为终点
package router

import (
	"net/url"
	"sync"

	"github.com/plainhttp/plainhttp/httperr"
)

// node 路由树节点
type node struct {
	statics  map[string]*node
	param    *node
	catchAll *node
	route    *Route
}

func (n *node) empty() bool {
	return n.route == nil && len(n.statics) == 0 && n.param == nil && n.catchAll == nil
}

// Match 一次成功的路由查找
//
// Params 为百分号解码后的参数 RawParams 保留原始编码
type Match struct {
	Route     *Route
	Params    map[string]string
	RawParams map[string]string
}

// Registry 路由注册表
//
// 读多写少 读写锁保证任意 exchange 观察到一致的路由集合
// 管理面的变更不会被进行中的查找看到一半
type Registry struct {
	mu    sync.RWMutex
	root  *node
	cache *lookupCache
}

func New() *Registry {
	return &Registry{
		root:  &node{},
		cache: newLookupCache(defaultCacheSize),
	}
}

// Add 注册路由
//
// 等价模式已存在时返回路由冲突错误 等价判定忽略参数名
func (reg *Registry) Add(rt *Route) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	n := reg.root
	for _, seg := range rt.segs {
		switch seg.kind {
		case segStatic:
			if n.statics == nil {
				n.statics = make(map[string]*node)
			}
			child := n.statics[seg.name]
			if child == nil {
				child = &node{}
				n.statics[seg.name] = child
			}
			n = child

		case segParam:
			if n.param == nil {
				n.param = &node{}
			}
			n = n.param

		case segCatchAll:
			if n.catchAll == nil {
				n.catchAll = &node{}
			}
			n = n.catchAll
		}
	}
	if n.route != nil {
		return newError("route collision: %q conflicts with %q", rt.pattern, n.route.pattern)
	}
	n.route = rt
	reg.cache.clear()
	return nil
}

// Lookup 查找路径对应的路由
//
// 未命中返回 no-route-found 错误
func (reg *Registry) Lookup(path string) (*Match, error) {
	if m, ok := reg.cache.get(path); ok {
		return m, nil
	}

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	segs := normalizePath(path)
	rt, bound := lookup(reg.root, segs, nil)
	if rt == nil {
		return nil, httperr.New(httperr.KindNoRouteFound, "no route found for %q", path)
	}

	// 持读锁写入缓存 变更的整体失效不会被旧结果覆盖
	m := bind(rt, bound)
	reg.cache.put(path, m)
	return m, nil
}

// lookup 递归匹配 优先级为静态段 > 参数段 > 余路径段
//
// bound 收集参数段匹配到的原始值 余路径值恒为末位
func lookup(n *node, segs []string, bound []string) (*Route, []string) {
	if len(segs) == 0 {
		if n.route != nil {
			return n.route, bound
		}
		// 恰好消费到 catch-all 的父节点 绑定 `/`
		if n.catchAll != nil && n.catchAll.route != nil {
			return n.catchAll.route, append(cloneBound(bound), "/")
		}
		return nil, nil
	}

	seg := segs[0]
	if child := n.statics[seg]; child != nil {
		if rt, b := lookup(child, segs[1:], bound); rt != nil {
			return rt, b
		}
	}
	if n.param != nil {
		if rt, b := lookup(n.param, segs[1:], append(cloneBound(bound), seg)); rt != nil {
			return rt, b
		}
	}
	if n.catchAll != nil && n.catchAll.route != nil {
		return n.catchAll.route, append(cloneBound(bound), joinPath(segs))
	}
	return nil, nil
}

func cloneBound(bound []string) []string {
	return append([]string(nil), bound...)
}

// bind 将匹配值按路由参数段的顺序命名
func bind(rt *Route, bound []string) *Match {
	m := &Match{
		Route:     rt,
		Params:    make(map[string]string),
		RawParams: make(map[string]string),
	}
	i := 0
	for _, seg := range rt.segs {
		if seg.kind == segStatic {
			continue
		}
		raw := bound[i]
		i++
		m.RawParams[seg.name] = raw
		if dec, err := url.PathUnescape(raw); err == nil {
			m.Params[seg.name] = dec
		} else {
			m.Params[seg.name] = raw
		}
	}
	return m
}

// Remove 按模式移除路由 参数名不参与匹配
//
// 返回被移除的路由 无匹配时为 nil
func (reg *Registry) Remove(pattern string) (*Route, error) {
	segs, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	removed := remove(reg.root, segs, nil)
	if removed != nil {
		reg.cache.clear()
	}
	return removed, nil
}

// RemoveRoute 按引用移除路由
func (reg *Registry) RemoveRoute(rt *Route) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	removed := remove(reg.root, rt.segs, rt)
	if removed != nil {
		reg.cache.clear()
	}
	return removed != nil
}

// remove 递归移除并裁剪既无路由又无子节点的空枝
//
// want 非 nil 时要求终点路由与之同一
func remove(n *node, segs []segment, want *Route) *Route {
	if len(segs) == 0 {
		rt := n.route
		if rt == nil || (want != nil && rt != want) {
			return nil
		}
		n.route = nil
		return rt
	}

	seg := segs[0]
	var child *node
	switch seg.kind {
	case segStatic:
		child = n.statics[seg.name]
	case segParam:
		child = n.param
	case segCatchAll:
		child = n.catchAll
	}
	if child == nil {
		return nil
	}

	rt := remove(child, segs[1:], want)
	if rt == nil {
		return nil
	}
	if child.empty() {
		switch seg.kind {
		case segStatic:
			delete(n.statics, seg.name)
			if len(n.statics) == 0 {
				n.statics = nil
			}
		case segParam:
			n.param = nil
		case segCatchAll:
			n.catchAll = nil
		}
	}
	return rt
}

// Routes 返回当前注册的全部路由 快照
func (reg *Registry) Routes() []*Route {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var out []*Route
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.route != nil {
			out = append(out, n.route)
		}
		for _, c := range n.statics {
			walk(c)
		}
		walk(n.param)
		walk(n.catchAll)
	}
	walk(reg.root)
	return out
}

// NormalizePath 暴露给上层的路径规范化
func NormalizePath(path string) string {
	return joinPath(normalizePath(path))
}
