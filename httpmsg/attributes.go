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
	"sync"
)

// Attributes 请求生命周期内的 kv 存储
//
// 常规场景下为单任务访问 并发安全是留给框架扩展方的
type Attributes struct {
	m sync.Map
}

func NewAttributes() *Attributes {
	return &Attributes{}
}

func (a *Attributes) Get(key string) (any, bool) {
	return a.m.Load(key)
}

func (a *Attributes) Set(key string, value any) {
	a.m.Store(key, value)
}

// GetOrCreate 返回已有值 不存在时以 create 的结果写入并返回
func (a *Attributes) GetOrCreate(key string, create func() any) any {
	if v, ok := a.m.Load(key); ok {
		return v
	}
	v, _ := a.m.LoadOrStore(key, create())
	return v
}

// AsMap 导出当前快照
func (a *Attributes) AsMap() map[string]any {
	out := make(map[string]any)
	a.m.Range(func(k, v any) bool {
		out[k.(string)] = v
		return true
	})
	return out
}
