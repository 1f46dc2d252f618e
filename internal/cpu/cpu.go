// Package cpu implements the execution engine for a PIC16-family
// microcontroller: decode-execute over a banked data bus and a
// separate program store, a bounded return-address stack, a status
// register, a program counter composed from two special function
// registers, and the step/run loop that drives them against a
// real-time clock derived from a configurable crystal frequency.
package cpu

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"

	"pic16sim/internal/databus"
	"pic16sim/internal/listing"
	"pic16sim/internal/rom"
)

// DefaultPeriod is the instruction period used before XTAL is
// configured: a slow, interactive single-step rate.
const DefaultPeriod = 100 * time.Millisecond

// Cpu is the execution engine. The zero value is not usable; build one
// with New.
type Cpu struct {
	Rom  *rom.Bus
	Data *databus.Bus

	Cycles  uint64
	Running bool
	Period  time.Duration
	PCMap   map[uint16]int

	In  <-chan string
	Out chan<- string
	buf []string

	Log      zerolog.Logger
	Trace    bool
	TraceOut io.Writer

	openListing func(path string) (io.ReadCloser, error)
	lastTick    time.Time
}

// New builds a Cpu wired to the given program and data buses and
// inbound/outbound command channels. The caller is expected to keep
// driving Update in a loop; New does not start any goroutine itself.
func New(r *rom.Bus, d *databus.Bus, in <-chan string, out chan<- string) *Cpu {
	c := &Cpu{
		Rom:    r,
		Data:   d,
		Period: DefaultPeriod,
		In:     in,
		Out:    out,
		Log:    zerolog.Nop(),
	}
	c.openListing = func(path string) (io.ReadCloser, error) { return openFile(path) }
	return c
}

// LoadProgram clears program memory, writes image at address 0,
// installs pcMap as the program-counter-to-source-line map, and resets
// architectural state.
func (c *Cpu) LoadProgram(image []byte, pcMap map[uint16]int) (truncated bool) {
	c.Rom.Reset()
	truncated = c.Rom.LoadProgram(image, 0)
	c.PCMap = pcMap
	c.Reset()
	return truncated
}

// Reset zeroes all SFRs and file registers, empties the stack, sets PC
// to 0, zeroes the cycle counter, and emits a full state snapshot.
func (c *Cpu) Reset() {
	c.Data.Reset()
	c.Cycles = 0
	c.emitSnapshot()
}

func (c *Cpu) emit(format string, args ...any) {
	c.buf = append(c.buf, fmt.Sprintf(format, args...))
}

func (c *Cpu) trace(label string, v any) {
	if !c.Trace || c.TraceOut == nil {
		return
	}
	fmt.Fprintf(c.TraceOut, "%s:\n%s", label, spew.Sdump(v))
}

func hex2(v byte) string { return fmt.Sprintf("%02xh", v) }

func (c *Cpu) emitPC() {
	c.emit("PCL %s", hex2(c.Data.ReadByte(databus.PCL)))
	c.emit("PCLATH %s", hex2(c.Data.ReadByte(databus.PCLATH)))
	c.emit("PCINTERN %04d", c.Data.GetPC())
}

func (c *Cpu) emitStack() {
	snap := c.Data.StackSnapshot()
	if len(snap) == 0 {
		c.emit("STACK")
		return
	}
	parts := make([]string, len(snap))
	for i, v := range snap {
		parts[i] = fmt.Sprintf("%04d", v)
	}
	c.emit("STACK %s", strings.Join(parts, ", "))
}

func (c *Cpu) emitSnapshot() {
	c.emit("WREG %s", hex2(c.Data.GetW()))
	c.emit("STATUS %s", hex2(c.Data.ReadByte(databus.STATUS)))
	c.emit("FSR %s", hex2(c.Data.ReadByte(databus.FSR)))
	c.emit("OPTION %s", hex2(c.Data.ReadByte(databus.OPTION)))
	c.emit("TIMER0 %s", hex2(c.Data.ReadByte(databus.TMR0)))
	c.emitPC()
	c.emitStack()
}

// setW writes the working register and emits WREG.
func (c *Cpu) setW(v byte) {
	c.Data.SetW(v)
	c.emit("WREG %s", hex2(v))
}

// writeFile writes a file register and emits FREG, plus the PC bundle
// if the write landed on PCL (the computed-goto sentinel).
func (c *Cpu) writeFile(a byte, v byte) (pcMutated bool) {
	pcMutated = c.Data.WriteByte(a, v)
	c.emit("FREG %d,0x%s", a, fmt.Sprintf("%02x", v))
	if pcMutated {
		c.emitPC()
	}
	return pcMutated
}

func (c *Cpu) setBit(a byte, i int) (pcMutated bool) {
	pcMutated = c.Data.SetBit(a, i)
	c.emit("FREG %d,0x%s", a, fmt.Sprintf("%02x", c.Data.ReadByte(a)))
	if pcMutated {
		c.emitPC()
	}
	return pcMutated
}

func (c *Cpu) clearBit(a byte, i int) (pcMutated bool) {
	pcMutated = c.Data.ClearBit(a, i)
	c.emit("FREG %d,0x%s", a, fmt.Sprintf("%02x", c.Data.ReadByte(a)))
	if pcMutated {
		c.emitPC()
	}
	return pcMutated
}

// setStatusBit sets or clears a STATUS bit, emitting the bit-level
// command before the whole-byte command, per the outbound protocol.
func (c *Cpu) setStatusBit(i int, v bool) {
	if v {
		c.Data.SetBit(databus.STATUS, i)
	} else {
		c.Data.ClearBit(databus.STATUS, i)
	}
	iv := 0
	if v {
		iv = 1
	}
	c.emit("STATUSBIT %d,%d", i, iv)
	c.emit("STATUS %s", hex2(c.Data.ReadByte(databus.STATUS)))
}

func (c *Cpu) updateArithFlags(carry, digitCarry bool, result byte) {
	c.setStatusBit(databus.BitC, carry)
	c.setStatusBit(databus.BitDC, digitCarry)
	c.setStatusBit(databus.BitZ, result == 0)
}

func (c *Cpu) updateZ(result byte) {
	c.setStatusBit(databus.BitZ, result == 0)
}

// loadPC writes the logical PC through to PCL/PCLATH and emits the
// resulting PC bundle.
func (c *Cpu) loadPC(v uint16) {
	c.Data.LoadPC(v)
	c.emitPC()
}

func (c *Cpu) pushStack(v uint16) {
	if overflow := c.Data.Push(v); overflow {
		c.Log.Warn().Uint16("value", v).Msg("return stack overflow, oldest entry discarded")
	}
	c.emitStack()
}

func (c *Cpu) popStack() uint16 {
	v, underflow := c.Data.Pop()
	if underflow {
		c.Log.Warn().Uint16("value", v).Msg("return stack underflow, stack pointer wrapped")
	}
	c.emitStack()
	return v
}

// Step fetches, decodes and executes one instruction, advances the
// cycle counter and PC per the jump flag, and emits the fixed
// old-line/new-line/PC bundle. A recoverable runtime fault (unknown
// opcode, PC out of range) is logged and the step is skipped without
// advancing PC.
func (c *Cpu) Step() error {
	oldPC := c.Data.GetPC()
	instr, err := c.Rom.ReadInstruction(oldPC)
	if err != nil {
		c.Log.Warn().Err(err).Msg("runtime fault, step skipped")
		return err
	}
	c.trace("fetch", instr)

	jumped, err := c.Execute(instr)
	if err != nil {
		c.Log.Warn().Err(err).Msg("runtime fault, step skipped")
		return err
	}

	if jumped {
		c.Cycles += 2
	} else {
		c.Data.IncPC(1)
		c.Cycles++
	}

	if oldLine, ok := c.PCMap[oldPC]; ok {
		c.emit("RESLINE %d", oldLine)
	}
	newPC := c.Data.GetPC()
	if newLine, ok := c.PCMap[newPC]; ok {
		c.emit("SETLINE %d", newLine)
	}
	c.emitPC()

	return nil
}

// Update runs one tick of the control loop: it paces itself to Period
// against a monotonic clock, drains pending inbound commands, steps
// once if running, and flushes the accumulated outbound buffer.
func (c *Cpu) Update(now time.Time) {
	if !c.lastTick.IsZero() {
		elapsed := now.Sub(c.lastTick)
		if elapsed < c.Period {
			time.Sleep(c.Period - elapsed)
		}
	}
	c.lastTick = time.Now()

	c.drainInbound()

	if c.Running {
		_ = c.Step() // fault already logged; CPU remains responsive
	}

	c.flush()
}

func (c *Cpu) flush() {
	for _, line := range c.buf {
		c.Out <- line
	}
	c.buf = c.buf[:0]
}

func (c *Cpu) drainInbound() {
	for {
		select {
		case line, ok := <-c.In:
			if !ok {
				return
			}
			c.handleCommand(line)
		default:
			return
		}
	}
}

func looksLikePath(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '/' {
		return true
	}
	return len(s) >= 2 && s[1] == ':'
}

func (c *Cpu) handleCommand(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch strings.ToUpper(fields[0]) {
	case "STEP":
		_ = c.Step()
	case "RESET":
		c.Reset()
	case "START":
		c.Running = true
	case "STOPP":
		c.Running = false
	case "XTAL":
		period, err := parseXtal(fields[1:])
		if err != nil {
			c.Log.Warn().Err(err).Str("line", line).Msg("configuration fault, command discarded")
			return
		}
		c.Period = period
	case "PORTA":
		c.handlePort(databus.PORTA, fields[1:])
	case "PORTB":
		c.handlePort(databus.PORTB, fields[1:])
	default:
		if looksLikePath(line) {
			c.loadListing(line)
			return
		}
		c.Log.Warn().Str("line", line).Msg("unknown inbound command, discarded")
	}
}

func parseXtal(args []string) (time.Duration, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("cpu: xtal wants <n> <unit>, got %v", args)
	}
	n, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("cpu: xtal: %w", err)
	}
	var mult float64
	switch strings.ToLower(args[1]) {
	case "khz":
		mult = 1e3
	case "mhz":
		mult = 1e6
	default:
		return 0, fmt.Errorf("cpu: xtal: unknown unit %q", args[1])
	}
	freq := n * mult
	if freq <= 0 {
		return 0, fmt.Errorf("cpu: xtal: non-positive frequency")
	}
	return time.Duration(4 * float64(time.Second) / freq), nil
}

func (c *Cpu) handlePort(addr byte, args []string) {
	if len(args) != 1 {
		c.Log.Warn().Strs("args", args).Msg("configuration fault, malformed port command")
		return
	}
	parts := strings.SplitN(args[0], ",", 2)
	if len(parts) != 2 {
		c.Log.Warn().Str("arg", args[0]).Msg("configuration fault, malformed port command")
		return
	}
	bit, err1 := strconv.Atoi(parts[0])
	val, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || bit < 0 || bit > 7 {
		c.Log.Warn().Str("arg", args[0]).Msg("configuration fault, malformed port command")
		return
	}
	if val != 0 {
		c.setBit(addr, bit)
	} else {
		c.clearBit(addr, bit)
	}
}

func openFile(path string) (io.ReadCloser, error) { return os.Open(path) }

func (c *Cpu) loadListing(path string) {
	f, err := c.openListing(path)
	if err != nil {
		c.Log.Warn().Err(err).Str("path", path).Msg("listing load failed")
		return
	}
	defer f.Close()

	res, err := listing.Parse(f)
	if err != nil {
		c.Log.Warn().Err(err).Str("path", path).Msg("listing parse failed")
		return
	}
	if c.LoadProgram(res.Program, res.PCMapper) {
		c.Log.Warn().Str("path", path).Msg("program image truncated to fit program memory")
	}
}
