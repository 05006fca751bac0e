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

package arm

import "github.com/dyldarm/armvm/vmerrors"

// DecoderFunc tries to decode encoding (with condition cond already
// resolved, and for ARM, already stripped from the top nibble) into an
// Instruction. It returns nil if this rule's bit pattern doesn't match.
type DecoderFunc func(encoding uint32, cond uint8) *Instruction

type decoderKey struct {
	length   int
	instrSet uint32
}

type decoderEntry struct {
	fn            DecoderFunc
	unconditional bool
}

// registry holds every decoder rule registered by the decode_*.go files'
// init functions, keyed by (instruction length in bytes, instruction
// set). This stands in for the teacher's class-registration-by-import
// mechanism (Python's @InstructionDecoder class-decorator populating
// _decoders at module load time): Go has no equivalent of a decorator
// instantiated at class-body evaluation time, so each decode_*.go file's
// init() calls Register directly, which runs at the same "before main"
// point in program startup.
var registry = map[decoderKey][]decoderEntry{
	{4, 0}: nil,
	{2, 1}: nil,
	{4, 1}: nil,
	{2, 3}: nil,
	{4, 3}: nil,
}

// Register adds fn to the rule set tried for the given instruction length
// and instruction set. unconditional marks an ARM-only rule that handles
// the cond==NV family (BLX, PLD, and similar instructions whose top
// nibble is not a condition at all); it is ignored for Thumb/ThumbEE.
// Rules are tried in registration order, first match wins.
func Register(length int, instrSet uint32, unconditional bool, fn DecoderFunc) {
	key := decoderKey{length, instrSet}
	registry[key] = append(registry[key], decoderEntry{fn: fn, unconditional: unconditional})
}

// decodersFor returns the rules to try for (length, instrSet). ThumbEE
// chains its own rules ahead of plain Thumb's: any instruction ThumbEE
// doesn't redefine falls back to behaving exactly as it would in Thumb.
func decodersFor(length int, instrSet uint32) []decoderEntry {
	if instrSet == 3 {
		out := append([]decoderEntry(nil), registry[decoderKey{length, 3}]...)
		return append(out, registry[decoderKey{length, 1}]...)
	}
	return registry[decoderKey{length, instrSet}]
}

// Dispatch decodes encoding (length bytes, in instrSet) into an
// Instruction. forceCondition overrides the condition an ARM encoding's
// top nibble would otherwise supply (used to carry a Thumb IT block's
// condition into the instructions it covers); pass CondNone when the
// instruction's own encoding should determine its condition.
func Dispatch(encoding uint32, length int, instrSet uint32, forceCondition uint8) (*Instruction, error) {
	isARM := instrSet == 0
	cond := forceCondition
	if isARM && cond == CondNone {
		cond = uint8(encoding >> 28)
		encoding &= 0xfffffff
	}

	for _, entry := range decodersFor(length, instrSet) {
		if isARM && entry.unconditional != (cond == CondNone) {
			continue
		}
		instr := entry.fn(encoding, cond)
		if instr == nil {
			continue
		}
		instr.Encoding = encoding
		instr.Length = length
		instr.InstructionSet = instrSet
		instr.Unconditional = entry.unconditional
		switch {
		case cond != CondNone:
			// An ARM top-nibble condition, or a Thumb IT-block override.
			instr.Condition = Condition(cond)
		case isARM:
			instr.Condition = AL
		default:
			// A plain Thumb/ThumbEE instruction outside an IT block: its
			// rule already set Condition (AL for the ordinary case, or
			// the instruction's own embedded condition for Bcond).
		}
		return instr, nil
	}

	return nil, vmerrors.Errorf(vmerrors.DecoderNotFound, encoding, length, instrSet)
}
