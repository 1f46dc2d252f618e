package cpu

import (
	"fmt"

	"pic16sim/internal/databus"
	"pic16sim/internal/inst"
)

// Execute runs one decoded instruction against the data bus, updating
// flags and emitting debug deltas through the Cpu's setter methods. It
// reports whether the instruction redirected the PC itself (a branch,
// a taken skip, or a write that landed on PCL) — the caller uses this
// to decide between the 1-cycle and 2-cycle step cost and whether the
// generic PC++ still applies.
func (c *Cpu) Execute(i inst.Instruction) (jumped bool, err error) {
	switch i.Kind {

	case inst.KindNOP:
		// nothing

	case inst.KindMOVLW:
		c.setW(byte(i.K))

	case inst.KindMOVWF:
		jumped = c.writeFile(byte(i.F), c.Data.GetW())

	case inst.KindMOVF:
		f := c.Data.ReadByte(byte(i.F))
		jumped = c.store(i.D, i.F, f)
		c.updateZ(f)

	case inst.KindCLRW:
		c.setW(0)
		c.updateZ(0)

	case inst.KindCLRF:
		jumped = c.writeFile(byte(i.F), 0)
		c.updateZ(0)

	case inst.KindADDLW:
		result, carry, dc := addWithFlags(c.Data.GetW(), byte(i.K))
		c.setW(result)
		c.updateArithFlags(carry, dc, result)

	case inst.KindADDWF:
		f := c.Data.ReadByte(byte(i.F))
		result, carry, dc := addWithFlags(c.Data.GetW(), f)
		jumped = c.store(i.D, i.F, result)
		c.updateArithFlags(carry, dc, result)

	case inst.KindSUBLW:
		result, carry, dc := subWithFlags(byte(i.K), c.Data.GetW())
		c.setW(result)
		c.updateArithFlags(carry, dc, result)

	case inst.KindSUBWF:
		f := c.Data.ReadByte(byte(i.F))
		result, carry, dc := subWithFlags(f, c.Data.GetW())
		jumped = c.store(i.D, i.F, result)
		c.updateArithFlags(carry, dc, result)

	case inst.KindANDLW:
		result := c.Data.GetW() & byte(i.K)
		c.setW(result)
		c.updateZ(result)

	case inst.KindANDWF:
		result := c.Data.GetW() & c.Data.ReadByte(byte(i.F))
		jumped = c.store(i.D, i.F, result)
		c.updateZ(result)

	case inst.KindIORLW:
		result := c.Data.GetW() | byte(i.K)
		c.setW(result)
		c.updateZ(result)

	case inst.KindIORWF:
		result := c.Data.GetW() | c.Data.ReadByte(byte(i.F))
		jumped = c.store(i.D, i.F, result)
		c.updateZ(result)

	case inst.KindXORLW:
		result := c.Data.GetW() ^ byte(i.K)
		c.setW(result)
		c.updateZ(result)

	case inst.KindXORWF:
		result := c.Data.GetW() ^ c.Data.ReadByte(byte(i.F))
		jumped = c.store(i.D, i.F, result)
		c.updateZ(result)

	case inst.KindCOMF:
		result := ^c.Data.ReadByte(byte(i.F))
		jumped = c.store(i.D, i.F, result)
		c.updateZ(result)

	case inst.KindINCF:
		result := c.Data.ReadByte(byte(i.F)) + 1
		jumped = c.store(i.D, i.F, result)
		c.updateZ(result)

	case inst.KindDECF:
		result := c.Data.ReadByte(byte(i.F)) - 1
		jumped = c.store(i.D, i.F, result)
		c.updateZ(result)

	case inst.KindINCFSZ:
		result := c.Data.ReadByte(byte(i.F)) + 1
		jumped = c.store(i.D, i.F, result)
		if result == 0 {
			c.loadPC(c.Data.GetPC() + 2)
			jumped = true
		}

	case inst.KindDECFSZ:
		result := c.Data.ReadByte(byte(i.F)) - 1
		jumped = c.store(i.D, i.F, result)
		if result == 0 {
			c.loadPC(c.Data.GetPC() + 2)
			jumped = true
		}

	case inst.KindSWAPF:
		f := c.Data.ReadByte(byte(i.F))
		result := (f << 4) | (f >> 4)
		jumped = c.store(i.D, i.F, result)

	case inst.KindRLF:
		f := c.Data.ReadByte(byte(i.F))
		carryIn := byte(0)
		if c.Data.GetBit(databus.STATUS, databus.BitC) {
			carryIn = 1
		}
		result := (f << 1) | carryIn
		jumped = c.store(i.D, i.F, result)
		c.setStatusBit(databus.BitC, f&0x80 != 0)

	case inst.KindRRF:
		f := c.Data.ReadByte(byte(i.F))
		carryIn := byte(0)
		if c.Data.GetBit(databus.STATUS, databus.BitC) {
			carryIn = 0x80
		}
		result := (f >> 1) | carryIn
		jumped = c.store(i.D, i.F, result)
		c.setStatusBit(databus.BitC, f&0x01 != 0)

	case inst.KindBCF:
		jumped = c.clearBit(byte(i.F), int(i.B))

	case inst.KindBSF:
		jumped = c.setBit(byte(i.F), int(i.B))

	case inst.KindBTFSC:
		if !c.Data.GetBit(byte(i.F), int(i.B)) {
			c.loadPC(c.Data.GetPC() + 2)
			jumped = true
		}

	case inst.KindBTFSS:
		if c.Data.GetBit(byte(i.F), int(i.B)) {
			c.loadPC(c.Data.GetPC() + 2)
			jumped = true
		}

	case inst.KindGOTO:
		c.loadPC(gotoTarget(c.Data.ReadByte(databus.PCLATH), i.A))
		jumped = true

	case inst.KindCALL:
		ret := c.Data.GetPC() + 1
		target := gotoTarget(c.Data.ReadByte(databus.PCLATH), i.A)
		c.pushStack(ret)
		c.loadPC(target)
		jumped = true

	case inst.KindRETURN:
		c.loadPC(c.popStack())
		jumped = true

	case inst.KindRETLW:
		target := c.popStack()
		c.setW(byte(i.K))
		c.loadPC(target)
		jumped = true

	case inst.KindRETFIE:
		// Interrupts are out of scope; behaves exactly like RETURN.
		c.loadPC(c.popStack())
		jumped = true

	case inst.KindSLEEP, inst.KindCLRWDT:
		// no-op in this core

	default:
		err = fmt.Errorf("cpu: unhandled instruction kind %v", i.Kind)
	}

	return jumped, err
}

// store routes result to W (d == false) or back to the file register
// (d == true), reporting whether the write redirected the PC.
func (c *Cpu) store(d inst.DestFlag, f inst.FileRegister, result byte) (pcMutated bool) {
	if d {
		return c.writeFile(byte(f), result)
	}
	c.setW(result)
	return false
}

// gotoTarget reconstructs the 13-bit jump target for GOTO/CALL: the
// low 11 bits come from the instruction's address operand, the high 2
// bits from PCLATH's own low 2 bits.
func gotoTarget(pclath byte, a inst.Address) uint16 {
	return (uint16(pclath)<<11)&0x1800 | uint16(a)
}

func addWithFlags(a, b byte) (result byte, carry, digitCarry bool) {
	sum := uint16(a) + uint16(b)
	carry = sum > 0xFF
	digitCarry = (a&0x0F)+(b&0x0F) > 0x0F
	return byte(sum), carry, digitCarry
}

// subWithFlags computes minuend-subtrahend using the reference chip's
// convention: C is the complement of borrow (set when no borrow was
// needed) and DC is the complement of the low-nibble borrow. This is a
// deliberate departure from a naive two's-complement carry flag.
func subWithFlags(minuend, subtrahend byte) (result byte, carry, digitCarry bool) {
	carry = minuend >= subtrahend
	digitCarry = (minuend & 0x0F) >= (subtrahend & 0x0F)
	return minuend - subtrahend, carry, digitCarry
}
