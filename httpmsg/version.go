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

import (
	"fmt"
	"strconv"
	"strings"
)

// Version HTTP 协议版本
type Version struct {
	Major int
	Minor int
}

var (
	HTTP10 = Version{Major: 1, Minor: 0}
	HTTP11 = Version{Major: 1, Minor: 1}
	HTTP20 = Version{Major: 2, Minor: 0}
)

// ParseVersion 解析 `HTTP/major.minor` 形式的版本 token
func ParseVersion(s string) (Version, error) {
	rest, ok := strings.CutPrefix(s, "HTTP/")
	if !ok {
		return Version{}, newError("unparseable HTTP version %q", s)
	}
	major, minor, ok := strings.Cut(rest, ".")
	if !ok {
		return Version{}, newError("unparseable HTTP version %q", s)
	}
	mj, err := strconv.Atoi(major)
	if err != nil || mj < 0 {
		return Version{}, newError("unparseable HTTP version %q", s)
	}
	mn, err := strconv.Atoi(minor)
	if err != nil || mn < 0 {
		return Version{}, newError("unparseable HTTP version %q", s)
	}
	return Version{Major: mj, Minor: mn}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("HTTP/%d.%d", v.Major, v.Minor)
}

// Less 返回 v 是否严格小于 o
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

// AtLeast 返回 v 是否不低于 o
func (v Version) AtLeast(o Version) bool {
	return !v.Less(o)
}
