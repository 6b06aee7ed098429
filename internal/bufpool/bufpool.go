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

package bufpool

import (
	"github.com/valyala/bytebufferpool"
)

// Acquire 从池中取出一个空 buffer
//
// 响应头序列化与 body 缓冲等高频短生命周期场景使用
// 用完必须调用 Release 归还
func Acquire() *bytebufferpool.ByteBuffer {
	return bytebufferpool.Get()
}

// Release 归还 buffer 至池中
func Release(b *bytebufferpool.ByteBuffer) {
	bytebufferpool.Put(b)
}
