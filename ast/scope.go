// This file is part of steelc - https://github.com/kinderjosh/steelc
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ast

// GlobalScope is the root of every scope chain.
const GlobalScope = "<global>"

// hasPrefixSegment reports whether p is a hyphen-delimited prefix of s,
// i.e. s == p or s starts with p followed by a '-'.
func hasPrefixSegment(p, s string) bool {
	if len(p) > len(s) || s[:len(p)] != p {
		return false
	}
	return len(p) == len(s) || s[len(p)] == '-'
}

// ScopeVisible reports whether a symbol defined at scope `def` is visible
// from scope `ref`: they are equal, either is the global scope, or one is
// a hyphen-delimited prefix of the other.
func ScopeVisible(def, ref string) bool {
	if def == ref || def == GlobalScope || ref == GlobalScope {
		return true
	}
	return hasPrefixSegment(def, ref) || hasPrefixSegment(ref, def)
}
