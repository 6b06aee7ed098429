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

// ChannelWriter 单次 exchange 的响应写出通道
//
// 允许写出 0 或多个 1xx 临时响应 随后恰好一个最终响应
// 写出顺序即网络顺序 不允许在最终响应之后继续写入
type ChannelWriter interface {
	// WriteInterim 写出一个 1xx 临时响应
	WriteInterim(r *Response) error

	// Write 写出最终响应并结束当次 exchange
	Write(r *Response) error
}
