// This file is part of armvm.
//
// armvm is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armvm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armvm.  If not, see <https://www.gnu.org/licenses/>.

package armmem

import "github.com/dyldarm/armvm/armval"

// Stack is an infinite, bidirectional deque of pointer-sized values
// addressed by signed byte offset from the origin; it grows transparently
// in either direction as offsets outside what's been touched so far are
// accessed. Untouched words read as Int(0).
type Stack struct {
	content map[int64]armval.Value
}

// NewStack creates an empty Stack.
func NewStack() *Stack {
	return &Stack{content: make(map[int64]armval.Value)}
}

func (s *Stack) getItem(item int64, minLength int) (armval.Value, error) {
	if v, ok := s.content[item]; ok {
		return v, nil
	}
	return armval.Int(0), nil
}

func (s *Stack) setItem(item int64, value armval.Value) error {
	s.content[item] = value
	return nil
}

// Get reads length bytes (or the native word if 0) at offset from the
// stack's origin.
func (s *Stack) Get(offset int64, length int) (armval.Value, error) {
	return alignedGet(s, offset, length)
}

// Set writes value at offset from the stack's origin.
func (s *Stack) Set(offset int64, value armval.Value, length int) error {
	return alignedSet(s, offset, value, length)
}

// Copy returns an isolated copy of s.
func (s *Stack) Copy() *Stack {
	cp := NewStack()
	for k, v := range s.content {
		cp.content[k] = v
	}
	return cp
}
