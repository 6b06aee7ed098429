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

package mediatype

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "mediatype: " + format
	return errors.Errorf(format, args...)
}

// Param 单个媒体类型参数 Name 统一小写
type Param struct {
	Name  string
	Value string
}

// MediaType 解析后的媒体类型
//
// Type/Subtype 统一小写 参数保持输入顺序
// charset 参数值仅在 Type 为 text 时小写
type MediaType struct {
	Type    string
	Subtype string
	Params  []Param
}

// MediaRange 带 q 值的媒体范围 出现于 Accept 等请求头
type MediaRange struct {
	MediaType
	Q float64
}

var (
	// All 匹配一切的媒体范围
	All = MediaType{Type: "*", Subtype: "*"}

	TextPlain       = MediaType{Type: "text", Subtype: "plain"}
	TextHTML        = MediaType{Type: "text", Subtype: "html"}
	ApplicationJSON = MediaType{Type: "application", Subtype: "json"}
)

// WildcardType 返回 type 是否为通配
func (m MediaType) WildcardType() bool {
	return m.Type == "*"
}

// WildcardSubtype 返回 subtype 是否为通配
func (m MediaType) WildcardSubtype() bool {
	return m.Subtype == "*"
}

// Param 按 name 查找参数值
func (m MediaType) Param(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, p := range m.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func (m MediaType) String() string {
	var sb strings.Builder
	sb.WriteString(m.Type)
	sb.WriteByte('/')
	sb.WriteString(m.Subtype)
	for _, p := range m.Params {
		sb.WriteString("; ")
		sb.WriteString(p.Name)
		sb.WriteByte('=')
		sb.WriteString(p.Value)
	}
	return sb.String()
}

// Parse 解析 `type/subtype(; name=value)*`
//
// 通配符 `*` 仅允许作为完整的 subtype 或 `*/*`
func Parse(s string) (MediaType, error) {
	segs := splitUnquoted(s, ';')
	prefix := strings.TrimSpace(segs[0])

	slash := strings.Count(prefix, "/")
	if slash != 1 {
		return MediaType{}, newError("expected exactly one '/' in %q", prefix)
	}
	typ, sub, _ := strings.Cut(prefix, "/")
	typ = strings.ToLower(strings.TrimSpace(typ))
	sub = strings.ToLower(strings.TrimSpace(sub))
	if typ == "" || sub == "" {
		return MediaType{}, newError("empty type or subtype in %q", prefix)
	}
	if typ == "*" && sub != "*" {
		return MediaType{}, newError("wildcard type with concrete subtype %q", prefix)
	}

	mt := MediaType{Type: typ, Subtype: sub}
	for _, seg := range segs[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		name, value, ok := strings.Cut(seg, "=")
		if !ok {
			return MediaType{}, newError("parameter %q is not name=value", seg)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = unquote(strings.TrimSpace(value))
		if name == "charset" && typ == "text" {
			value = strings.ToLower(value)
		}
		mt.Params = append(mt.Params, Param{Name: name, Value: value})
	}
	return mt, nil
}

// ParseRange 解析媒体范围
//
// 末位参数为 q/Q 时提取其为 q 值 其后的扩展参数被忽略
func ParseRange(s string) (MediaRange, error) {
	mt, err := Parse(s)
	if err != nil {
		return MediaRange{}, err
	}
	mr := MediaRange{MediaType: mt, Q: 1.0}
	for i, p := range mt.Params {
		if p.Name != "q" {
			continue
		}
		q, err := strconv.ParseFloat(p.Value, 64)
		if err != nil || q < 0 || q > 1 {
			return MediaRange{}, newError("bad q value %q", p.Value)
		}
		mr.Q = q
		mr.Params = mt.Params[:i]
		break
	}
	return mr, nil
}

// ParseAccept 解析一组 Accept 头的值 非法项被跳过
func ParseAccept(values []string) []MediaRange {
	var out []MediaRange
	for _, v := range values {
		for _, item := range splitUnquoted(v, ',') {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			mr, err := ParseRange(item)
			if err != nil {
				continue
			}
			out = append(out, mr)
		}
	}
	return out
}

// splitUnquoted 按分隔符切分 跳过 quoted-string 内部
func splitUnquoted(s string, sep byte) []string {
	var out []string
	var start int
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && inQuote:
			i++
		case s[i] == '"':
			inQuote = !inQuote
		case s[i] == sep && !inQuote:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// unquote 去除 quoted-string 的首尾引号及转义
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	body := s[1 : len(s)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}
