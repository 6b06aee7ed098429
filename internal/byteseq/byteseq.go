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
	"io"

	"github.com/pkg/errors"

	"github.com/plainhttp/plainhttp/internal/bufpool"
)

func newError(format string, args ...any) error {
	format = "byteseq: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrEndOfStream 迭代器已经耗尽
	ErrEndOfStream = newError("end of stream")

	// ErrPrematureEnd 上游在预期长度之前结束
	ErrPrematureEnd = newError("upstream finished prematurely")

	// ErrLimitExceeded 缓冲读取超过了配置上限
	ErrLimitExceeded = newError("buffered size limit exceeded")
)

// Iterator 惰性字节块序列
//
// Next 返回的切片仅在下一次 Next 调用前有效 调用方不允许修改其内容
// Iterator 为单消费者设计 不提供并发安全保证
// 请求 body 形态的 Iterator 至多只能被消费一次
type Iterator interface {
	// HasNext 返回是否还有后续字节块 不触发 I/O
	HasNext() bool

	// Next 返回下一个字节块
	//
	// 耗尽后返回 ErrEndOfStream 上游 I/O 失败返回包装后的原始错误
	Next() ([]byte, error)

	// Close 释放底层资源 只对持有资源的实现有意义
	Close() error
}

// ForEachRemaining 排空迭代器并在所有退出路径上释放资源
func ForEachRemaining(it Iterator, fn func(p []byte) error) error {
	defer it.Close()
	for {
		b, err := it.Next()
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				return nil
			}
			return err
		}
		if fn == nil {
			continue
		}
		if err := fn(b); err != nil {
			return err
		}
	}
}

// Drain 丢弃迭代器中所有剩余数据
func Drain(it Iterator) error {
	return ForEachRemaining(it, nil)
}

// Collect 将迭代器内容缓冲成单块字节
//
// 累计超过 max 字节时返回 ErrLimitExceeded 并停止读取
// max <= 0 代表不设上限
func Collect(it Iterator, max int) ([]byte, error) {
	buf := bufpool.Acquire()
	defer bufpool.Release(buf)

	err := ForEachRemaining(it, func(p []byte) error {
		if max > 0 && buf.Len()+len(p) > max {
			return ErrLimitExceeded
		}
		buf.Write(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, nil
	}

	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}

type emptyIter struct{}

func (emptyIter) HasNext() bool         { return false }
func (emptyIter) Next() ([]byte, error) { return nil, ErrEndOfStream }
func (emptyIter) Close() error          { return nil }

// Empty 返回空迭代器
func Empty() Iterator {
	return emptyIter{}
}

type chunksIter struct {
	chunks [][]byte
	idx    int
}

// Of 基于给定字节块创建迭代器 跳过空块
func Of(chunks ...[]byte) Iterator {
	kept := make([][]byte, 0, len(chunks))
	for _, c := range chunks {
		if len(c) > 0 {
			kept = append(kept, c)
		}
	}
	return &chunksIter{chunks: kept}
}

func (it *chunksIter) HasNext() bool {
	return it.idx < len(it.chunks)
}

func (it *chunksIter) Next() ([]byte, error) {
	if it.idx >= len(it.chunks) {
		return nil, ErrEndOfStream
	}
	b := it.chunks[it.idx]
	it.idx++
	return b, nil
}

func (it *chunksIter) Close() error {
	it.idx = len(it.chunks)
	return nil
}

type readerIter struct {
	r     io.Reader
	block int
	buf   []byte
	done  bool
}

// FromReader 基于 io.Reader 创建迭代器 每次最多读取 block 字节
//
// Reader 返回 io.EOF 时迭代器进入耗尽态 其余错误原样透传
func FromReader(r io.Reader, block int) Iterator {
	if block <= 0 {
		block = defaultBlockSize
	}
	return &readerIter{
		r:     r,
		block: block,
		buf:   make([]byte, block),
	}
}

const defaultBlockSize = 4096

func (it *readerIter) HasNext() bool {
	return !it.done
}

func (it *readerIter) Next() ([]byte, error) {
	if it.done {
		return nil, ErrEndOfStream
	}
	for {
		n, err := it.r.Read(it.buf)
		if n > 0 {
			return it.buf[:n], nil
		}
		if err == nil {
			continue
		}
		it.done = true
		if errors.Is(err, io.EOF) {
			return nil, ErrEndOfStream
		}
		return nil, errors.Wrap(err, "byteseq: read")
	}
}

func (it *readerIter) Close() error {
	it.done = true
	if c, ok := it.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
