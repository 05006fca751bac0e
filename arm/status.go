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

import "github.com/dyldarm/armvm/bitpattern"

// fixIT and unfixIT convert between the CPSR's storage order for the
// Thumb IT-block state (a 2-bit run at bits[26:25] holding the high
// bits, concatenated by bitpattern.Pattern with a 6-bit run at
// bits[15:10] holding the low bits) and the conventional single IT[7:0]
// byte the ARM ARM describes and ITAdvance operates on.
func fixIT(t uint32) uint32 {
	return (t >> 6) + ((t & 0b111111) << 2)
}

func unfixIT(t uint32) uint32 {
	return (t >> 2) + ((t & 0b11) << 6)
}

// cpsrPattern lays out the 32-bit ARM status register. Letters that
// repeat a run (t, used twice for the split IT-state bits) rely on
// bitpattern's discontiguous-field concatenation; every other letter is
// a single contiguous run.
var cpsrPattern = bitpattern.Compile(
	"NZCVQttJ ____gggg ttttttEA IFTMMMMM",
	map[byte]string{'t': "IT", 'g': "GE"},
	map[string]bitpattern.FixUp{
		"IT": {PostDecode: fixIT, PreEncode: unfixIT},
	},
)

// Status is a 32-bit ARM status register (CPSR or SPSR). The zero Status
// has every flag clear and mode field 0; callers that need the ARM
// reset value should call NewStatus.
type Status struct {
	value uint32
}

// NewStatus returns a Status in the User mode, ARM instruction set reset
// state the teacher's own thread construction expects registers to
// start in.
func NewStatus() Status {
	return Status{value: 0b10000}
}

// Value returns the raw 32-bit register content. Status(v).Value() == v
// for every v, including bits no field names, since field setters go
// through Pattern.SetField rather than reconstructing the whole value
// from named fields alone.
func (s Status) Value() uint32 { return s.value }

// SetValue replaces the raw register content wholesale (an MSR of the
// whole register, or a mode entry restoring a saved SPSR).
func (s *Status) SetValue(v uint32) { s.value = v }

func (s Status) field(name string) uint32 {
	fields, _ := cpsrPattern.Unpack(s.value)
	return fields[name]
}

func (s *Status) setField(name string, v uint32) {
	s.value = cpsrPattern.SetField(s.value, name, v)
}

func boolBit(v uint32) bool { return v != 0 }
func bitBool(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (s Status) N() bool     { return boolBit(s.field("N")) }
func (s *Status) SetN(b bool) { s.setField("N", bitBool(b)) }

func (s Status) Z() bool     { return boolBit(s.field("Z")) }
func (s *Status) SetZ(b bool) { s.setField("Z", bitBool(b)) }

func (s Status) C() bool     { return boolBit(s.field("C")) }
func (s *Status) SetC(b bool) { s.setField("C", bitBool(b)) }

func (s Status) V() bool     { return boolBit(s.field("V")) }
func (s *Status) SetV(b bool) { s.setField("V", bitBool(b)) }

func (s Status) Q() bool     { return boolBit(s.field("Q")) }
func (s *Status) SetQ(b bool) { s.setField("Q", bitBool(b)) }

// IT is the Thumb IT-block execution state: 0 means "not in an IT
// block", a nonzero value's top nibble is the condition for the current
// instruction and ITAdvance(IT()) gives the state for the next one.
func (s Status) IT() uint32      { return s.field("IT") }
func (s *Status) SetIT(v uint32) { s.setField("IT", v) }

// InIT reports whether a Thumb IT block is currently in effect: the
// instruction about to execute is the IT-affected one if IT() != 0 (its
// condition is IT()'s top nibble), regardless of whether this is the
// last instruction the block covers.
func (s Status) InIT() bool { return s.IT() != 0 }

func (s Status) J() bool     { return boolBit(s.field("J")) }
func (s *Status) SetJ(b bool) { s.setField("J", bitBool(b)) }

func (s Status) GE() uint32      { return s.field("GE") }
func (s *Status) SetGE(v uint32) { s.setField("GE", v) }

func (s Status) E() bool     { return boolBit(s.field("E")) }
func (s *Status) SetE(b bool) { s.setField("E", bitBool(b)) }

func (s Status) A() bool     { return boolBit(s.field("A")) }
func (s *Status) SetA(b bool) { s.setField("A", bitBool(b)) }

func (s Status) I() bool     { return boolBit(s.field("I")) }
func (s *Status) SetI(b bool) { s.setField("I", bitBool(b)) }

func (s Status) F() bool     { return boolBit(s.field("F")) }
func (s *Status) SetF(b bool) { s.setField("F", bitBool(b)) }

func (s Status) T() bool     { return boolBit(s.field("T")) }
func (s *Status) SetT(b bool) { s.setField("T", bitBool(b)) }

func (s Status) M() uint32      { return s.field("M") }
func (s *Status) SetM(v uint32) { s.setField("M", v) }

// InstructionSet returns the processor's current instruction set (0 ARM,
// 1 Thumb, 2 Jazelle, 3 ThumbEE), read off the J and T flags.
func (s Status) InstructionSet() uint32 {
	j := uint32(0)
	if s.J() {
		j = 1
	}
	return j*2 + bitBool(s.T())
}

// SetInstructionSet updates exactly the J and T flags (property 4 of the
// testable invariants) and nothing else.
func (s *Status) SetInstructionSet(is uint32) {
	s.SetJ(is>>1 != 0)
	s.SetT(is&1 != 0)
}

// fpscrPattern lays out the floating-point status and control register.
// Only N, Z, C, V and QC are ever read by this emulator's VFP/NEON
// storage-only model; the rest exist so FPSCR round-trips byte for byte
// like the CPSR does.
var fpscrPattern = bitpattern.Compile(
	"NZCVQ_nFRRSS_LLLd__xuoeiD__XUOEI",
	map[byte]string{
		'Q': "QC", 'n': "DN", 'F': "FZ", 'R': "RMode", 'S': "stride", 'L': "length",
		'd': "IDE", 'x': "IXE", 'u': "UFE", 'o': "OFE", 'e': "DZE", 'i': "IOE",
		'D': "IDC", 'X': "IXC", 'U': "UFC", 'O': "OFC", 'E': "DZC", 'I': "IOC",
	},
	nil,
)

// FPStatus is the floating-point status and control register (FPSCR).
type FPStatus struct {
	value uint32
}

func (f FPStatus) Value() uint32  { return f.value }
func (f *FPStatus) SetValue(v uint32) { f.value = v }

func (f FPStatus) field(name string) uint32 {
	fields, _ := fpscrPattern.Unpack(f.value)
	return fields[name]
}
func (f *FPStatus) setField(name string, v uint32) {
	f.value = fpscrPattern.SetField(f.value, name, v)
}

func (f FPStatus) N() bool      { return boolBit(f.field("N")) }
func (f *FPStatus) SetN(b bool) { f.setField("N", bitBool(b)) }
func (f FPStatus) Z() bool      { return boolBit(f.field("Z")) }
func (f *FPStatus) SetZ(b bool) { f.setField("Z", bitBool(b)) }
func (f FPStatus) C() bool      { return boolBit(f.field("C")) }
func (f *FPStatus) SetC(b bool) { f.setField("C", bitBool(b)) }
func (f FPStatus) V() bool      { return boolBit(f.field("V")) }
func (f *FPStatus) SetV(b bool) { f.setField("V", bitBool(b)) }
func (f FPStatus) QC() bool      { return boolBit(f.field("QC")) }
func (f *FPStatus) SetQC(b bool) { f.setField("QC", bitBool(b)) }
