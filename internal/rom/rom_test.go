package rom

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pic16sim/internal/inst"
)

func TestLoadProgramTruncates(t *testing.T) {
	var b Bus
	trunc := b.LoadProgram([]byte{1, 2, 3}, 0)
	assert.False(t, trunc)

	trunc = b.LoadProgram(make([]byte, 10), Capacity-5)
	assert.True(t, trunc)
}

func TestLoadProgramOutOfRangeBase(t *testing.T) {
	var b Bus
	assert.True(t, b.LoadProgram([]byte{1}, Capacity))
	assert.True(t, b.LoadProgram([]byte{1}, -1))
}

func TestReadInstructionRoundTrip(t *testing.T) {
	var b Bus
	// MOVLW 0xAA: 11 00 00 10101010 -> 0x30AA
	word := uint16(0x30AA)
	b.LoadProgram([]byte{byte(word >> 8), byte(word)}, 0)

	got, err := b.ReadInstruction(0)
	assert.NoError(t, err)
	assert.Equal(t, inst.KindMOVLW, got.Kind)
	assert.Equal(t, inst.Literal(0xAA), got.K)
}

func TestReadInstructionOutOfRange(t *testing.T) {
	var b Bus
	_, err := b.ReadInstruction(uint16(Capacity))
	assert.Error(t, err)
}

func TestReadInstructionUnknownOpcode(t *testing.T) {
	var b Bus
	b.LoadProgram([]byte{0x00, 0x41}, 0) // 0x0041: unused 000000-group pattern
	_, err := b.ReadInstruction(0)
	assert.Error(t, err)
}
