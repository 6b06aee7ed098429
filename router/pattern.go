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

package router

import (
	"strings"

	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "router: " + format
	return errors.Errorf(format, args...)
}

type segKind int

const (
	// segStatic 字面量段
	segStatic segKind = iota

	// segParam 单段参数 `:name`
	segParam

	// segCatchAll 余路径参数 `*name` 只能出现在末位
	segCatchAll
)

// segment 路由模式中的一段
type segment struct {
	kind segKind
	name string
}

// parsePattern 解析路由模式
//
// `/` 零段 `/a/b` 静态 `/a/:p` 单段参数 `/a/*p` 余路径参数
// 参数名允许为空 非空参数名不允许重复
func parsePattern(pattern string) ([]segment, error) {
	if pattern == "" || pattern[0] != '/' {
		return nil, newError("pattern %q must start with '/'", pattern)
	}
	if pattern == "/" {
		return nil, nil
	}

	parts := strings.Split(pattern[1:], "/")
	segs := make([]segment, 0, len(parts))
	seen := make(map[string]bool)

	for i, part := range parts {
		if part == "" {
			return nil, newError("pattern %q has an empty segment", pattern)
		}
		switch part[0] {
		case ':':
			name := part[1:]
			if name != "" && seen[name] {
				return nil, newError("pattern %q repeats parameter %q", pattern, name)
			}
			seen[name] = true
			segs = append(segs, segment{kind: segParam, name: name})

		case '*':
			if i != len(parts)-1 {
				return nil, newError("pattern %q has a non-terminal catch-all", pattern)
			}
			name := part[1:]
			if name != "" && seen[name] {
				return nil, newError("pattern %q repeats parameter %q", pattern, name)
			}
			segs = append(segs, segment{kind: segCatchAll, name: name})

		default:
			segs = append(segs, segment{kind: segStatic, name: part})
		}
	}
	return segs, nil
}

// normalizePath 规范化请求路径
//
// 连续 `/` 折叠 `.` 与 `..` 按段消解且不越过根 百分号编码原样保留
func normalizePath(path string) []string {
	var segs []string
	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(segs) > 0 {
				segs = segs[:len(segs)-1]
			}
		default:
			segs = append(segs, part)
		}
	}
	return segs
}

// joinPath 由段还原路径 零段为 `/`
func joinPath(segs []string) string {
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/")
}
