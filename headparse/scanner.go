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

package headparse

import (
	"github.com/pkg/errors"

	"github.com/plainhttp/plainhttp/httperr"
	"github.com/plainhttp/plainhttp/internal/byteseq"
)

// scanner 单字节前瞻的底层扫描器
//
// 记录 prev/curr 字节与位置 任何解析失败都能报告现场
// count 自 section 起始累计 消费任何会越过上限的字节之前先行失败
type scanner struct {
	cur *byteseq.Cursor

	prev  byte
	curr  byte
	pos   int
	count int

	max     int
	maxKind httperr.Kind
}

// next 消费一个原始字节
//
// 上游耗尽透传 byteseq.ErrEndOfStream 由调用方决定语义
func (s *scanner) next() (byte, error) {
	if s.max > 0 && s.count >= s.max {
		return 0, httperr.NewSize(s.maxKind, s.max)
	}
	b, err := s.cur.NextByte()
	if err != nil {
		return 0, err
	}
	s.prev = s.curr
	s.curr = b
	s.pos++
	s.count++
	return b, nil
}

// nextToken 消费一个有效字节
//
// 行结束约定 CRLF 为正统 裸 LF 同样终止一行 裸 CR 被跳过
// 第二个返回值为 true 时代表遇到了行结束
func (s *scanner) nextToken() (byte, bool, error) {
	b, err := s.next()
	if err != nil {
		return 0, false, err
	}
	for b == '\r' {
		nb, err := s.next()
		if err != nil {
			return 0, false, err
		}
		if nb == '\n' {
			return 0, true, nil
		}
		// 裸 CR 忽略 继续处理后续字节
		b = nb
	}
	if b == '\n' {
		return 0, true, nil
	}
	return b, false, nil
}

// parseErr 以当前现场构建解析错误
func (s *scanner) parseErr(kind httperr.Kind, msg string) error {
	return httperr.NewParse(kind, msg, s.prev, s.curr, s.pos, s.count)
}

// premature 上游在 section 结束前耗尽
func (s *scanner) premature(kind httperr.Kind) error {
	return s.parseErr(kind, "upstream finished prematurely")
}

// eos 返回 err 是否为上游耗尽
func eos(err error) bool {
	return errors.Is(err, byteseq.ErrEndOfStream)
}

// isWS SP 或 HTAB
func isWS(b byte) bool {
	return b == ' ' || b == '\t'
}

// isTokenChar RFC 7230 token 字符集
func isTokenChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
