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

// Package chunkio 实现 RFC 7230 §4.1 chunked transfer coding 的流式编解码
package chunkio

import (
	"math"

	"github.com/pkg/errors"

	"github.com/plainhttp/plainhttp/headparse"
	"github.com/plainhttp/plainhttp/httperr"
	"github.com/plainhttp/plainhttp/httpmsg"
	"github.com/plainhttp/plainhttp/internal/byteseq"
)

const defaultBlockSize = 4096

// Decoder chunked body 的流式解码器
//
// 实现了 byteseq.Iterator 终结后报告为空 不可复用
// size 行之间允许出现单独的空行 以兼容对端编码器的块边界写法
type Decoder struct {
	cur         *byteseq.Cursor
	remaining   uint64
	done        bool
	trailers    *httpmsg.Headers
	trailersMax int
	block       int
}

// NewDecoder 创建解码器
//
// trailersMax 为 trailer section 的字节上限
func NewDecoder(cur *byteseq.Cursor, trailersMax int) *Decoder {
	return &Decoder{
		cur:         cur,
		trailersMax: trailersMax,
		block:       defaultBlockSize,
	}
}

func decodeErr(msg string) error {
	return httperr.New(httperr.KindDecoderFailure, "%s", msg)
}

// HasNext 实现 byteseq.Iterator
func (d *Decoder) HasNext() bool {
	return !d.done
}

// Next 返回下一个解码后的数据块
func (d *Decoder) Next() ([]byte, error) {
	if d.done {
		return nil, byteseq.ErrEndOfStream
	}

	if d.remaining == 0 {
		n, err := d.readSizeLine()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			if err := d.finish(); err != nil {
				return nil, err
			}
			return nil, byteseq.ErrEndOfStream
		}
		d.remaining = n
	}

	max := d.block
	if uint64(max) > d.remaining {
		max = int(d.remaining)
	}
	b, err := d.cur.ReadChunk(max)
	if err != nil {
		if errors.Is(err, byteseq.ErrEndOfStream) {
			return nil, decodeErr("upstream is empty but decoding is not done")
		}
		return nil, err
	}
	d.remaining -= uint64(len(b))

	if d.remaining == 0 {
		if err := d.consumeLineEnd(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Close 排空剩余数据 保证连接可继续复用
func (d *Decoder) Close() error {
	for !d.done {
		if _, err := d.Next(); err != nil {
			if errors.Is(err, byteseq.ErrEndOfStream) {
				return nil
			}
			d.done = true
			return err
		}
	}
	return nil
}

// Trailers 返回 trailer section 的字段 解码完成前为 nil
func (d *Decoder) Trailers() *httpmsg.Headers {
	return d.trailers
}

// finish 处理 0 块之后的 trailer section
//
// 上游紧随 0 块结束时视为无 trailer 的合法终止
func (d *Decoder) finish() error {
	d.done = true
	if _, err := d.cur.Peek(); err != nil {
		if errors.Is(err, byteseq.ErrEndOfStream) {
			d.trailers = httpmsg.NewHeaders()
			return nil
		}
		return err
	}

	trailers, err := headparse.ParseTrailers(d.cur, d.trailersMax)
	if err != nil {
		return err
	}
	d.trailers = trailers
	return nil
}

// consumeLineEnd 消费 chunk-data 之后强制的行结束
func (d *Decoder) consumeLineEnd() error {
	b, err := d.nextByte()
	if err != nil {
		return err
	}
	if b == '\n' {
		return nil
	}
	if b != '\r' {
		return decodeErr("missing CRLF after chunk data")
	}
	b, err = d.nextByte()
	if err != nil {
		return err
	}
	if b != '\n' {
		return decodeErr("missing CRLF after chunk data")
	}
	return nil
}

// readSizeLine 解析 `chunk-size [;chunk-ext] CRLF`
//
// 至多接受 16 个十六进制数字 位数与符号双重检测溢出
// chunk-ext 被丢弃 quoted-string 形式的扩展值不受支持
func (d *Decoder) readSizeLine() (uint64, error) {
	var n uint64
	digits := 0

	b, err := d.nextByte()
	if err != nil {
		return 0, err
	}

	// 跳过块边界处的空行
	for {
		if b == '\n' {
			b, err = d.nextByte()
			if err != nil {
				return 0, err
			}
			continue
		}
		if b == '\r' {
			nb, err := d.nextByte()
			if err != nil {
				return 0, err
			}
			if nb != '\n' {
				return 0, decodeErr("bare CR in chunk size line")
			}
			b, err = d.nextByte()
			if err != nil {
				return 0, err
			}
			continue
		}
		break
	}

	for {
		v, ok := hexValue(b)
		if !ok {
			break
		}
		if digits == 16 {
			return 0, decodeErr("long overflow")
		}
		n = n<<4 | uint64(v)
		digits++

		b, err = d.nextByte()
		if err != nil {
			return 0, err
		}
	}
	if digits == 0 {
		return 0, decodeErr("invalid chunk size line")
	}
	if n > math.MaxInt64 {
		return 0, decodeErr("long overflow")
	}

	// 可选 chunk-ext 丢弃至行尾
	if b == ';' {
		for {
			b, err = d.nextByte()
			if err != nil {
				return 0, err
			}
			if b == '"' {
				return 0, decodeErr("quoted-string chunk extension not supported")
			}
			if b == '\r' || b == '\n' {
				break
			}
		}
	}

	switch b {
	case '\n':
		return n, nil
	case '\r':
		nb, err := d.nextByte()
		if err != nil {
			return 0, err
		}
		if nb != '\n' {
			return 0, decodeErr("invalid chunk size line")
		}
		return n, nil
	}
	return 0, decodeErr("invalid chunk size line")
}

func (d *Decoder) nextByte() (byte, error) {
	b, err := d.cur.NextByte()
	if err != nil {
		if errors.Is(err, byteseq.ErrEndOfStream) {
			return 0, decodeErr("upstream is empty but decoding is not done")
		}
		return 0, err
	}
	return b, nil
}

func hexValue(b byte) (byte, bool) {
	switch {
	case '0' <= b && b <= '9':
		return b - '0', true
	case 'a' <= b && b <= 'f':
		return b - 'a' + 10, true
	case 'A' <= b && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
