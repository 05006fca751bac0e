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

package armval

// Lsl, Lsr, and Asr shift an Int value by a concrete amount; they reject a
// token operand for the same reason And/Or/Xor do. ARM's actual barrel
// shifter lives in the arm package (it also needs carry-out and the
// RRX/ROR forms); these exist only so a decoder operand that happens to
// carry a symbolic base can fail the same loud way any other bitwise
// mismatch does, rather than being silently shifted as if it were 0.
func Lsl(a Value, shift uint) (Value, error) {
	return intShift(a, shift, func(x uint32, s uint) uint32 {
		if s >= 32 {
			return 0
		}
		return x << s
	})
}

func Lsr(a Value, shift uint) (Value, error) {
	return intShift(a, shift, func(x uint32, s uint) uint32 {
		if s >= 32 {
			return 0
		}
		return x >> s
	})
}

func Asr(a Value, shift uint) (Value, error) {
	return intShift(a, shift, func(x uint32, s uint) uint32 {
		if s >= 31 {
			s = 31
		}
		return uint32(int32(x) >> s)
	})
}

func intShift(a Value, shift uint, f func(uint32, uint) uint32) (Value, error) {
	if a.kind != KindInt {
		return Value{}, mismatch("shift", a, Int(0))
	}
	return Int(f(a.raw, shift)), nil
}
