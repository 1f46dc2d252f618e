package inst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeByteOriented(t *testing.T) {
	// ADDWF 0x20,1 -> 00 0111 1010 0000
	i := Decode(0b00_0111_1_0100000)
	assert.Equal(t, KindADDWF, i.Kind)
	assert.Equal(t, FileRegister(0x20), i.F)
	assert.Equal(t, DestFlag(true), i.D)

	// MOVF 0x10,0
	i = Decode(0b00_1000_0_0010000)
	assert.Equal(t, KindMOVF, i.Kind)
	assert.Equal(t, FileRegister(0x10), i.F)
	assert.Equal(t, DestFlag(false), i.D)

	// CLRW (opcode 000001, d=0)
	i = Decode(0b00_0001_0_0000000)
	assert.Equal(t, KindCLRW, i.Kind)

	// CLRF 0x20 (opcode 000001, d=1)
	i = Decode(0b00_0001_1_0100000)
	assert.Equal(t, KindCLRF, i.Kind)
	assert.Equal(t, FileRegister(0x20), i.F)

	// MOVWF 0x0C
	i = Decode(0b00_0000_1_0001100)
	assert.Equal(t, KindMOVWF, i.Kind)
	assert.Equal(t, FileRegister(0x0C), i.F)

	// NOP
	i = Decode(0b00_0000_0_0000000)
	assert.Equal(t, KindNOP, i.Kind)
}

func TestDecodeBitOriented(t *testing.T) {
	// BSF 0x20,5 -> 01 01 101 0100000
	i := Decode(0b01_01_101_0100000)
	assert.Equal(t, KindBSF, i.Kind)
	assert.Equal(t, FileRegister(0x20), i.F)
	assert.Equal(t, BitIndex(5), i.B)

	// BCF 0x03,0
	i = Decode(0b01_00_000_0000011)
	assert.Equal(t, KindBCF, i.Kind)
	assert.Equal(t, FileRegister(0x03), i.F)
	assert.Equal(t, BitIndex(0), i.B)

	// BTFSC 0x20,0
	i = Decode(0b01_10_000_0100000)
	assert.Equal(t, KindBTFSC, i.Kind)

	// BTFSS 0x20,0
	i = Decode(0b01_11_000_0100000)
	assert.Equal(t, KindBTFSS, i.Kind)
}

func TestDecodeLiteralControl(t *testing.T) {
	i := Decode(0b11_00_00_10101010) // MOVLW 0xAA
	assert.Equal(t, KindMOVLW, i.Kind)
	assert.Equal(t, Literal(0xAA), i.K)

	i = Decode(0b11_1111_00000001) // ADDLW 0x01
	assert.Equal(t, KindADDLW, i.Kind)
	assert.Equal(t, Literal(0x01), i.K)

	i = Decode(0b11_1100_11111111) // SUBLW 0xFF
	assert.Equal(t, KindSUBLW, i.Kind)
	assert.Equal(t, Literal(0xFF), i.K)

	i = Decode(0b11_1001_00001111) // ANDLW 0x0F
	assert.Equal(t, KindANDLW, i.Kind)

	i = Decode(0b11_1000_00001111) // IORLW
	assert.Equal(t, KindIORLW, i.Kind)

	i = Decode(0b11_1010_00001111) // XORLW
	assert.Equal(t, KindXORLW, i.Kind)

	i = Decode(0b11_01_00_00000011) // RETLW 0x03
	assert.Equal(t, KindRETLW, i.Kind)
	assert.Equal(t, Literal(0x03), i.K)

	i = Decode(0b10_0_00000010000) // CALL 0x010
	assert.Equal(t, KindCALL, i.Kind)
	assert.Equal(t, Address(0x010), i.A)

	i = Decode(0b10_1_00000010000) // GOTO 0x010
	assert.Equal(t, KindGOTO, i.Kind)
	assert.Equal(t, Address(0x010), i.A)

	assert.Equal(t, KindRETURN, Decode(0x0008).Kind)
	assert.Equal(t, KindRETFIE, Decode(0x0009).Kind)
	assert.Equal(t, KindSLEEP, Decode(0x0063).Kind)
	assert.Equal(t, KindCLRWDT, Decode(0x0064).Kind)
}

func TestDecodeUnknown(t *testing.T) {
	i := Decode(0x0041)
	assert.Equal(t, KindUnknown, i.Kind)
}

func TestDecodeIgnoresTopTwoBits(t *testing.T) {
	low14 := uint16(0b11_0000_10101010)
	a := Decode(low14)
	b := Decode(low14 | 0x4000) // set one of the ignored top 2 bits
	c := Decode(low14 | 0x8000) // set the other ignored top bit
	assert.Equal(t, a.Kind, b.Kind)
	assert.Equal(t, a.K, b.K)
	assert.Equal(t, a.Kind, c.Kind)
	assert.Equal(t, a.K, c.K)
}
