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

package server

import (
	"github.com/plainhttp/plainhttp/httpmsg"
	"github.com/plainhttp/plainhttp/internal/byteseq"
)

// expectBody Expect: 100-continue 请求的 body 包装
//
// 首次真实访问 body 时写出 100 Continue 已写出最终响应后不再补发
type expectBody struct {
	inner byteseq.Iterator
	w     *channelWriter
	sent  bool
}

var _ byteseq.Iterator = (*expectBody)(nil)

// send 写出 100 Continue 幂等
func (b *expectBody) send() error {
	if b.sent || b.w.wroteFinal {
		b.sent = true
		return nil
	}
	b.sent = true
	return b.w.WriteInterim(httpmsg.Of(100))
}

func (b *expectBody) HasNext() bool {
	return b.inner.HasNext()
}

func (b *expectBody) Next() ([]byte, error) {
	if err := b.send(); err != nil {
		return nil, err
	}
	return b.inner.Next()
}

func (b *expectBody) Close() error {
	return b.inner.Close()
}
