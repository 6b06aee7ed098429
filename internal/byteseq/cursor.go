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

package byteseq

import (
	"github.com/pkg/errors"
)

// Cursor 在 Iterator 之上提供单字节粒度的游标
//
// 解析器以字节为单位消费 而 body 以块为单位消费
// Cursor 持有当前块的未读余量 保证两种粒度可以在同一条字节流上交替进行
// 一条连接的整个生命周期共享同一个 Cursor 前一次请求多读的字节自然归属下一次请求
type Cursor struct {
	it    Iterator
	chunk []byte
	off   int
}

func NewCursor(it Iterator) *Cursor {
	return &Cursor{it: it}
}

// Buffered 返回当前块中尚未消费的字节数
func (c *Cursor) Buffered() int {
	return len(c.chunk) - c.off
}

func (c *Cursor) fill() error {
	for c.off >= len(c.chunk) {
		b, err := c.it.Next()
		if err != nil {
			return err
		}
		c.chunk = b
		c.off = 0
	}
	return nil
}

// NextByte 消费并返回下一个字节
//
// 上游耗尽返回 ErrEndOfStream
func (c *Cursor) NextByte() (byte, error) {
	if err := c.fill(); err != nil {
		return 0, err
	}
	b := c.chunk[c.off]
	c.off++
	return b, nil
}

// Peek 返回下一个字节但不消费
func (c *Cursor) Peek() (byte, error) {
	if err := c.fill(); err != nil {
		return 0, err
	}
	return c.chunk[c.off], nil
}

// ReadChunk 消费并返回至多 max 字节
//
// 优先返回当前块余量 不跨块拼接 返回切片的有效期同 Iterator.Next
func (c *Cursor) ReadChunk(max int) ([]byte, error) {
	if max <= 0 {
		return nil, newError("non-positive chunk size %d", max)
	}
	if err := c.fill(); err != nil {
		return nil, err
	}
	n := len(c.chunk) - c.off
	if n > max {
		n = max
	}
	b := c.chunk[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Close 关闭底层迭代器
func (c *Cursor) Close() error {
	c.chunk = nil
	c.off = 0
	return c.it.Close()
}

// fixedLenIter 按声明长度从 Cursor 中读取 body
//
// 实际可读字节不足声明长度时返回 ErrPrematureEnd
type fixedLenIter struct {
	cur       *Cursor
	remaining int64
	block     int
}

// NewFixedLength 创建长度已知的 body 迭代器
func NewFixedLength(cur *Cursor, n int64, block int) Iterator {
	if block <= 0 {
		block = defaultBlockSize
	}
	return &fixedLenIter{cur: cur, remaining: n, block: block}
}

func (it *fixedLenIter) HasNext() bool {
	return it.remaining > 0
}

func (it *fixedLenIter) Next() ([]byte, error) {
	if it.remaining <= 0 {
		return nil, ErrEndOfStream
	}
	max := it.block
	if int64(max) > it.remaining {
		max = int(it.remaining)
	}
	b, err := it.cur.ReadChunk(max)
	if err != nil {
		if errors.Is(err, ErrEndOfStream) {
			return nil, ErrPrematureEnd
		}
		return nil, err
	}
	it.remaining -= int64(len(b))
	return b, nil
}

// Close 丢弃未消费的声明长度内字节 保证连接可继续复用
func (it *fixedLenIter) Close() error {
	for it.remaining > 0 {
		if _, err := it.Next(); err != nil {
			it.remaining = 0
			return err
		}
	}
	return nil
}
