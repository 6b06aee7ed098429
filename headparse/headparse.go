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

// Package headparse 实现请求头与 trailer 的字节级解析
//
// 解析器工作在任意切割的字节流之上 不要求行完整到达
// 所有尺寸检查发生在消费越界字节之前
package headparse

import (
	"strings"

	"github.com/plainhttp/plainhttp/httperr"
	"github.com/plainhttp/plainhttp/httpmsg"
	"github.com/plainhttp/plainhttp/internal/byteseq"
)

// RequestLine 请求行的三个 token
type RequestLine struct {
	Method  string
	Target  string
	Version string
}

// Parser 请求头解析器
//
// 请求行与 header 共享同一个字节计数 上限即整个 head 的上限
type Parser struct {
	s scanner
}

// NewParser 创建解析器 maxHeadSize <= 0 代表不设上限
func NewParser(cur *byteseq.Cursor, maxHeadSize int) *Parser {
	return &Parser{s: scanner{
		cur:     cur,
		max:     maxHeadSize,
		maxKind: httperr.KindHeadSizeExceeded,
	}}
}

// RequestLine 解析 `method SP target SP version` 请求行
//
// 每个 token 必须非空 行前的空行会被跳过
// 首字节即上游耗尽时透传 byteseq.ErrEndOfStream 代表对端正常断开
func (p *Parser) RequestLine() (RequestLine, error) {
	var rl RequestLine
	var tokens []string
	var tok strings.Builder
	started := false

	for {
		b, lineEnd, err := p.s.nextToken()
		if err != nil {
			if eos(err) {
				if !started {
					return rl, byteseq.ErrEndOfStream
				}
				return rl, p.s.premature(httperr.KindRequestLineParse)
			}
			return rl, err
		}

		if lineEnd {
			if !started {
				// 请求之间的冗余空行 跳过
				continue
			}
			if tok.Len() > 0 {
				tokens = append(tokens, tok.String())
				tok.Reset()
			}
			if len(tokens) != 3 {
				return rl, p.s.parseErr(httperr.KindRequestLineParse,
					"request-line parse error")
			}
			rl.Method = tokens[0]
			rl.Target = tokens[1]
			rl.Version = tokens[2]
			return rl, nil
		}

		started = true
		if isWS(b) {
			if tok.Len() == 0 {
				// 行首或连续分隔符 产生空 token 即失败
				return rl, p.s.parseErr(httperr.KindRequestLineParse,
					"request-line parse error")
			}
			tokens = append(tokens, tok.String())
			tok.Reset()
			continue
		}
		if len(tokens) >= 3 {
			return rl, p.s.parseErr(httperr.KindRequestLineParse,
				"request-line parse error")
		}
		tok.WriteByte(b)
	}
}

// Headers 解析 header section 直到空行
func (p *Parser) Headers() (*httpmsg.Headers, error) {
	return parseFields(&p.s, httperr.KindHeaderParse)
}

// ParseTrailers 解析 chunked body 之后的 trailer section
func ParseTrailers(cur *byteseq.Cursor, max int) (*httpmsg.Headers, error) {
	s := scanner{
		cur:     cur,
		max:     max,
		maxKind: httperr.KindTrailersSizeExceeded,
	}
	return parseFields(&s, httperr.KindHeaderParse)
}

// parseFields header/trailer 共用的字段状态机
//
// 同名字段按输入顺序保留 折行以单个 SP 接回前值
func parseFields(s *scanner, kind httperr.Kind) (*httpmsg.Headers, error) {
	headers := httpmsg.NewHeaders()

	var lastName string
	var lastValue strings.Builder
	havePrev := false

	commit := func() {
		if havePrev {
			headers.Add(lastName, strings.TrimRight(lastValue.String(), " \t"))
			lastValue.Reset()
		}
	}

	for {
		b, lineEnd, err := s.nextToken()
		if err != nil {
			if eos(err) {
				return nil, s.premature(kind)
			}
			return nil, err
		}

		// 空行结束 section
		if lineEnd {
			commit()
			return headers, nil
		}

		// 行首 SP/HT 为折行 无前序 header 时非法
		if isWS(b) {
			if !havePrev {
				return nil, s.parseErr(kind, "folded line before any header")
			}
			cont, _, err := restOfLine(s, b)
			if err != nil {
				return nil, err
			}
			if cont != "" {
				lastValue.WriteByte(' ')
				lastValue.WriteString(cont)
			}
			continue
		}

		// NAME_START
		if b == ':' {
			return nil, s.parseErr(kind, "empty header name")
		}
		commit()
		havePrev = false

		name, err := readName(s, b, kind)
		if err != nil {
			return nil, err
		}
		value, _, err := restOfLine(s, 0)
		if err != nil {
			return nil, err
		}
		lastName = name
		lastValue.WriteString(value)
		havePrev = true
	}
}

// readName 读取 header name 直至冒号
//
// name 内部与其后不允许任何空白
func readName(s *scanner, first byte, kind httperr.Kind) (string, error) {
	var name strings.Builder
	b := first
	for {
		switch {
		case b == ':':
			return name.String(), nil
		case isWS(b):
			return "", s.parseErr(kind, "whitespace in header name")
		case !isTokenChar(b):
			return "", s.parseErr(kind, "illegal character in header name")
		}
		name.WriteByte(b)

		nb, lineEnd, err := s.nextToken()
		if err != nil {
			if eos(err) {
				return "", s.premature(kind)
			}
			return "", err
		}
		if lineEnd {
			return "", s.parseErr(kind, "header line without colon")
		}
		b = nb
	}
}

// restOfLine 读取当前行的剩余内容 去除首尾空白
//
// first 非 0 时作为首个已读字节参与 用于折行场景
func restOfLine(s *scanner, first byte) (string, bool, error) {
	var sb strings.Builder
	leading := true

	consume := func(b byte) {
		if leading && isWS(b) {
			return
		}
		leading = false
		sb.WriteByte(b)
	}
	if first != 0 {
		consume(first)
	}

	for {
		b, lineEnd, err := s.nextToken()
		if err != nil {
			if eos(err) {
				return "", false, s.premature(httperr.KindHeaderParse)
			}
			return "", false, err
		}
		if lineEnd {
			return strings.TrimRight(sb.String(), " \t"), true, nil
		}
		consume(b)
	}
}
