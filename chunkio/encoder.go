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

package chunkio

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/plainhttp/plainhttp/internal/byteseq"
)

// Encoder chunked body 的流式编码器
//
// 每个非空输入块编码为 8 位十六进制 size 行加数据加 CRLF
// 输入耗尽后以 0 块收尾 不产生 trailer
type Encoder struct {
	it      byteseq.Iterator
	scratch []byte
	done    bool
}

// NewEncoder 创建编码器
func NewEncoder(it byteseq.Iterator) *Encoder {
	return &Encoder{it: it}
}

// HasNext 实现 byteseq.Iterator
func (e *Encoder) HasNext() bool {
	return !e.done
}

// Next 返回下一个编码后的字节块
func (e *Encoder) Next() ([]byte, error) {
	if e.done {
		return nil, byteseq.ErrEndOfStream
	}

	for {
		b, err := e.it.Next()
		if err != nil {
			if errors.Is(err, byteseq.ErrEndOfStream) {
				e.done = true
				return []byte("\r\n0\r\n"), nil
			}
			return nil, err
		}
		if len(b) == 0 {
			continue
		}

		e.scratch = e.scratch[:0]
		e.scratch = append(e.scratch, fmt.Sprintf("%08X\r\n", len(b))...)
		e.scratch = append(e.scratch, b...)
		e.scratch = append(e.scratch, '\r', '\n')
		return e.scratch, nil
	}
}

// Close 关闭底层输入
func (e *Encoder) Close() error {
	e.done = true
	return e.it.Close()
}
