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

// Score handler 类型相对请求范围的兼容度
type Score int

const (
	// Nope 完全不兼容
	Nope Score = iota

	// Works 可用但并非精确匹配 通配或 q<1 或 handler 无参数
	Works

	// Perfect 全等且 q>=1 且无通配
	Perfect
)

func (s Score) String() string {
	switch s {
	case Perfect:
		return "perfect"
	case Works:
		return "works"
	}
	return "nope"
}

// paramsEqual 比较参数集 忽略顺序
func paramsEqual(a, b []Param) bool {
	if len(a) != len(b) {
		return false
	}
	for _, pa := range a {
		found := false
		for _, pb := range b {
			if pa.Name == pb.Name && pa.Value == pb.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Compatibility 计算 handler 类型 h 对请求范围 r 的兼容度
func Compatibility(h MediaType, r MediaRange) Score {
	typeWild := h.WildcardType() || r.WildcardType()
	subWild := h.WildcardSubtype() || r.WildcardSubtype()

	if !typeWild && h.Type != r.Type {
		return Nope
	}
	if !subWild && h.Subtype != r.Subtype {
		return Nope
	}
	if r.Q <= 0 {
		return Nope
	}
	if len(h.Params) > 0 && !paramsEqual(h.Params, r.Params) {
		return Nope
	}

	allEqual := h.Type == r.Type && h.Subtype == r.Subtype && paramsEqual(h.Params, r.Params)
	noWild := !h.WildcardType() && !h.WildcardSubtype() && !r.WildcardType() && !r.WildcardSubtype()
	if allEqual && r.Q >= 1 && noWild {
		return Perfect
	}
	return Works
}

// Negotiate 在 offers 中选出对 ranges 兼容度最高的项
//
// Perfect 优先于 Works 同档次按 q 值高者优先 全为 Nope 时 ok 为 false
func Negotiate(offers []MediaType, ranges []MediaRange) (best MediaType, score Score, ok bool) {
	bestQ := -1.0
	for _, offer := range offers {
		for _, r := range ranges {
			s := Compatibility(offer, r)
			if s == Nope {
				continue
			}
			if s > score || (s == score && r.Q > bestQ) {
				best, score, ok = offer, s, true
				bestQ = r.Q
			}
		}
	}
	return best, score, ok
}
