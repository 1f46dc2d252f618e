// Package inst implements the PIC16 instruction model: a discriminated
// union over every supported mnemonic, together with strongly-typed
// operand wrappers and a total, pure decoder.
package inst

import "fmt"

// Literal is an 8-bit immediate operand (k in the PIC16 reference).
type Literal uint8

// FileRegister is a 7-bit file-register address (f in the PIC16 reference).
type FileRegister uint8

// BitIndex is a 3-bit bit position within a file register (b in the
// PIC16 reference).
type BitIndex uint8

// DestFlag routes a computed result either back to W (false) or to the
// file register operand (true).
type DestFlag bool

// Address is an 11-bit jump/call target.
type Address uint16

// Kind identifies which instruction variant a decoded Instruction carries.
type Kind int

const (
	// Byte-oriented.
	KindADDWF Kind = iota
	KindANDWF
	KindCLRF
	KindCLRW
	KindCOMF
	KindDECF
	KindDECFSZ
	KindINCF
	KindINCFSZ
	KindIORWF
	KindMOVF
	KindMOVWF
	KindNOP
	KindRLF
	KindRRF
	KindSUBWF
	KindSWAPF
	KindXORWF

	// Bit-oriented.
	KindBCF
	KindBSF
	KindBTFSC
	KindBTFSS

	// Literal/control.
	KindADDLW
	KindANDLW
	KindCALL
	KindCLRWDT
	KindGOTO
	KindIORLW
	KindMOVLW
	KindRETFIE
	KindRETLW
	KindRETURN
	KindSLEEP
	KindSUBLW
	KindXORLW

	// KindUnknown is the explicit catch-all member of the union: an
	// unrecognised 14-bit pattern decodes here rather than panicking, so
	// the executor can treat it as a recoverable runtime fault.
	KindUnknown
)

var kindNames = map[Kind]string{
	KindADDWF: "ADDWF", KindANDWF: "ANDWF", KindCLRF: "CLRF", KindCLRW: "CLRW",
	KindCOMF: "COMF", KindDECF: "DECF", KindDECFSZ: "DECFSZ", KindINCF: "INCF",
	KindINCFSZ: "INCFSZ", KindIORWF: "IORWF", KindMOVF: "MOVF", KindMOVWF: "MOVWF",
	KindNOP: "NOP", KindRLF: "RLF", KindRRF: "RRF", KindSUBWF: "SUBWF",
	KindSWAPF: "SWAPF", KindXORWF: "XORWF",
	KindBCF: "BCF", KindBSF: "BSF", KindBTFSC: "BTFSC", KindBTFSS: "BTFSS",
	KindADDLW: "ADDLW", KindANDLW: "ANDLW", KindCALL: "CALL", KindCLRWDT: "CLRWDT",
	KindGOTO: "GOTO", KindIORLW: "IORLW", KindMOVLW: "MOVLW", KindRETFIE: "RETFIE",
	KindRETLW: "RETLW", KindRETURN: "RETURN", KindSLEEP: "SLEEP", KindSUBLW: "SUBLW",
	KindXORLW: "XORLW",
	KindUnknown: "UNKNOWN",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Instruction is the decoded form of a 14-bit opcode word. Only the
// operand fields relevant to Kind are meaningful; the rest are zero
// value. Raw preserves the original word, used when reporting an
// KindUnknown decode.
type Instruction struct {
	Kind Kind

	F   FileRegister
	D   DestFlag
	B   BitIndex
	K   Literal
	A   Address
	Raw uint16
}

func (i Instruction) String() string {
	switch i.Kind {
	case KindUnknown:
		return fmt.Sprintf("UNKNOWN(%#04x)", i.Raw)
	case KindADDLW, KindANDLW, KindIORLW, KindMOVLW, KindRETLW, KindSUBLW, KindXORLW:
		return fmt.Sprintf("%s %#02x", i.Kind, byte(i.K))
	case KindCALL, KindGOTO:
		return fmt.Sprintf("%s %#03x", i.Kind, uint16(i.A))
	case KindBCF, KindBSF, KindBTFSC, KindBTFSS:
		return fmt.Sprintf("%s %d,%d", i.Kind, i.F, i.B)
	case KindCLRW, KindNOP, KindCLRWDT, KindRETFIE, KindRETURN, KindSLEEP:
		return i.Kind.String()
	default:
		return fmt.Sprintf("%s %d,%d", i.Kind, i.F, boolToInt(bool(i.D)))
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
