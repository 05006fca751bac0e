package vmerrors

// Message constants for the core's curated errors. Each corresponds to one
// of the error kinds described for the CPU core: invalid bit-pattern
// characters, failed instruction dispatch, mismatched tagged-value
// arithmetic, unsupported partial memory access, heap use-after-free,
// out-of-range ROM dereference, and a condition code queried without a
// resolvable interpretation.
const (
	// InvalidBitPattern is raised when a bitpattern.Compile pattern string
	// contains a character that is neither '0', '1', '_', a letter, nor a
	// space.
	InvalidBitPattern = "invalid bit pattern character %q"

	// DecoderNotFound is raised when the dispatcher exhausts every
	// registered rule for (length, instruction set) without a match.
	DecoderNotFound = "no decoder found for %#x (length %d, instruction set %d)"

	// TokenKindMismatch is raised by armval arithmetic across incompatible
	// token kinds (e.g. two heap tokens with different handles, or a shift
	// applied to a token in a way that cannot preserve identity).
	TokenKindMismatch = "arithmetic on mismatched token kinds: %v and %v"

	// UnsupportedPartialAccess is raised when a partial-width or unaligned
	// memory access lands on a non-integer tagged value that cannot
	// decompose itself.
	UnsupportedPartialAccess = "cannot perform partial access on %v"

	// HeapUseAfterFree is raised by Heap.Get/Set on an unknown (freed or
	// never-allocated) handle.
	HeapUseAfterFree = "use of unknown or freed heap handle %d"

	// ROMOutOfRange is raised by a host ROM implementation (or the
	// simulated ROM) when derefBytes is asked for an address outside the
	// declared range.
	ROMOutOfRange = "ROM address %#x (length %d) is out of range"

	// UnknownCondition is raised if Condition(15) is evaluated without an
	// "always false" interpretation having been established; this should be
	// unreachable if the dispatcher is correctly written.
	UnknownCondition = "condition code %d has no defined predicate"
)
