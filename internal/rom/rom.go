// Package rom implements the PIC16 program store: a byte-addressable
// ROM bus separate from data memory, with a loader that accepts a byte
// vector at a base address and a reader that decodes the instruction
// at a given program-counter value.
package rom

import (
	"fmt"

	"pic16sim/internal/inst"
)

// Capacity is the size of the program store in bytes: enough for 4K
// 14-bit instructions stored as 2 bytes each.
const Capacity = 8192

// Bus is the program memory. The zero value is ready to use.
type Bus struct {
	mem [Capacity]byte
}

// Reset clears the program store.
func (b *Bus) Reset() {
	*b = Bus{}
}

// LoadProgram copies program into the bus starting at base. If the
// copy would run past the end of the store, it is truncated and
// truncated reports true so the caller can warn.
func (b *Bus) LoadProgram(program []byte, base int) (truncated bool) {
	if base < 0 || base >= Capacity {
		return true
	}
	n := copy(b.mem[base:], program)
	return n < len(program)
}

// ReadInstruction fetches the two bytes at (2*pc, 2*pc+1), reconstructs
// the 14-bit opcode word (high byte first), decodes it, and returns the
// instruction. It returns an error if pc addresses outside the store or
// the decoded opcode is unrecognised.
func (b *Bus) ReadInstruction(pc uint16) (inst.Instruction, error) {
	addr := int(pc) * 2
	if addr+1 >= Capacity {
		return inst.Instruction{}, fmt.Errorf("rom: pc %#04x out of range", pc)
	}

	hi, lo := b.mem[addr], b.mem[addr+1]
	word := uint16(hi)<<8 | uint16(lo)
	decoded := inst.Decode(word)
	if decoded.Kind == inst.KindUnknown {
		return decoded, fmt.Errorf("rom: unrecognised opcode %#04x at pc %#04x", word, pc)
	}
	return decoded, nil
}
