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
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultCacheSize = 1024

// lookupCache 以 xxhash(path) 为 key 的查找缓存
//
// 任何路由变更都会整体失效 满则整体清空 不做精细淘汰
type lookupCache struct {
	mu  sync.Mutex
	m   map[uint64]*Match
	max int
}

func newLookupCache(max int) *lookupCache {
	return &lookupCache{
		m:   make(map[uint64]*Match),
		max: max,
	}
}

func (c *lookupCache) get(path string) (*Match, bool) {
	key := xxhash.Sum64String(path)

	c.mu.Lock()
	m, ok := c.m[key]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return copyMatch(m), true
}

func (c *lookupCache) put(path string, m *Match) {
	key := xxhash.Sum64String(path)

	c.mu.Lock()
	if len(c.m) >= c.max {
		c.m = make(map[uint64]*Match)
	}
	c.m[key] = copyMatch(m)
	c.mu.Unlock()
}

func (c *lookupCache) clear() {
	c.mu.Lock()
	c.m = make(map[uint64]*Match)
	c.mu.Unlock()
}

// copyMatch 深拷贝参数映射 调用方可自由改写
func copyMatch(m *Match) *Match {
	out := &Match{
		Route:     m.Route,
		Params:    make(map[string]string, len(m.Params)),
		RawParams: make(map[string]string, len(m.RawParams)),
	}
	for k, v := range m.Params {
		out.Params[k] = v
	}
	for k, v := range m.RawParams {
		out.RawParams[k] = v
	}
	return out
}
