package insts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Op represents an operation class.
type Op uint8

// Operation classes.
const (
	OpUnknown Op = iota
	OpADD
)

// String returns the mnemonic of the operation.
func (o Op) String() string {
	switch o {
	case OpADD:
		return "ADD"
	default:
		return "UNKNOWN"
	}
}

// Format 3 field values for arithmetic instructions (SPARCv9 A.2).
const (
	// OpArith is the op field for arithmetic/logical instructions.
	OpArith = 2
	// Op3ADD is the op3 field of ADD.
	Op3ADD = 0x00
)

// Register file geometry.
const (
	// NumRegs is the number of integer registers visible in one window.
	NumRegs = 32
	// NoReg marks a register field that has not been decoded.
	NoReg uint8 = 0xFF
)

// Signed 13-bit immediate range.
const (
	MinSimm13 = -4096
	MaxSimm13 = 4095
)

// Decode errors.
var (
	ErrUnknownMnemonic = errors.New("unknown mnemonic")
	ErrOperandCount    = errors.New("wrong operand count")
	ErrBadRegister     = errors.New("malformed register")
	ErrBadImmediate    = errors.New("malformed immediate")
)

// DecodeError reports a line that could not be decoded.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Instruction represents one decoded instruction.
type Instruction struct {
	Op      Op  // Operation class
	OpField int // Format op field (2 for arithmetic), -1 until decoded
	Op3     int // Opcode sub-field, -1 until decoded

	Rd  uint8 // Destination register
	Rs1 uint8 // First source register

	// Imm selects the second operand: Simm13 when true, Rs2 otherwise.
	Imm    bool
	Rs2    uint8
	Simm13 int16

	// Text is the source line the instruction was built from.
	Text string
}

// NewPending returns an instruction that only carries its source text.
// All decoded fields hold sentinel values until Decode fills them.
func NewPending(text string) *Instruction {
	return &Instruction{
		Op:      OpUnknown,
		OpField: -1,
		Op3:     -1,
		Rd:      NoReg,
		Rs1:     NoReg,
		Rs2:     NoReg,
		Text:    text,
	}
}

// Decoded reports whether the instruction has been through the decoder.
func (i *Instruction) Decoded() bool {
	return i.Op != OpUnknown
}

// String returns the source text of the instruction.
func (i *Instruction) String() string {
	return i.Text
}

type decodeFunc func(d *Decoder, operands []string, inst *Instruction) error

// Decoder decodes assembly text lines into instructions.
type Decoder struct {
	table map[string]decodeFunc
}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		table: map[string]decodeFunc{
			"ADD": (*Decoder).decodeADD,
		},
	}
}

// Decode parses one line of assembly text.
func (d *Decoder) Decode(line string) (*Instruction, error) {
	inst := NewPending(line)
	if err := d.DecodeInto(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// DecodeInto fills the decoded fields of a pending instruction from its text.
// On error the instruction is left untouched.
func (d *Decoder) DecodeInto(inst *Instruction) error {
	fields := strings.Fields(inst.Text)
	if len(fields) == 0 {
		return &DecodeError{Line: inst.Text, Err: ErrOperandCount}
	}

	fn, ok := d.table[strings.ToUpper(fields[0])]
	if !ok {
		return &DecodeError{
			Line: inst.Text,
			Err:  fmt.Errorf("%w: %s", ErrUnknownMnemonic, fields[0]),
		}
	}

	decoded := *inst
	if err := fn(d, fields[1:], &decoded); err != nil {
		return &DecodeError{Line: inst.Text, Err: err}
	}
	*inst = decoded

	return nil
}

// decodeADD decodes ADD rs1 reg_or_imm rd (SPARCv9 A.2).
func (d *Decoder) decodeADD(operands []string, inst *Instruction) error {
	if len(operands) != 3 {
		return fmt.Errorf("%w: ADD takes 3 operands, got %d",
			ErrOperandCount, len(operands))
	}

	rs1, err := DecodeRegister(operands[0])
	if err != nil {
		return err
	}
	rd, err := DecodeRegister(operands[2])
	if err != nil {
		return err
	}

	inst.Op = OpADD
	inst.OpField = OpArith
	inst.Op3 = Op3ADD
	inst.Rs1 = rs1
	inst.Rd = rd

	if strings.HasPrefix(operands[1], "%") {
		rs2, err := DecodeRegister(operands[1])
		if err != nil {
			return err
		}
		inst.Imm = false
		inst.Rs2 = rs2
		inst.Simm13 = 0
		return nil
	}

	imm, err := decodeSimm13(operands[1])
	if err != nil {
		return err
	}
	inst.Imm = true
	inst.Rs2 = NoReg
	inst.Simm13 = imm

	return nil
}

// DecodeRegister converts a register token such as %l3 into its index.
// Globals map to 0-7, locals to 8-15 and outs to 16-23.
func DecodeRegister(tok string) (uint8, error) {
	if len(tok) != 3 || tok[0] != '%' {
		return 0, fmt.Errorf("%w: %q", ErrBadRegister, tok)
	}

	var base uint8
	switch tok[1] {
	case 'g':
		base = 0
	case 'l':
		base = 8
	case 'o':
		base = 16
	default:
		return 0, fmt.Errorf("%w: %q: unknown region %q", ErrBadRegister, tok, tok[1])
	}

	if tok[2] < '0' || tok[2] > '7' {
		return 0, fmt.Errorf("%w: %q: index out of range", ErrBadRegister, tok)
	}

	return base + tok[2] - '0', nil
}

func decodeSimm13(tok string) (int16, error) {
	v, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadImmediate, tok)
	}
	if v < MinSimm13 || v > MaxSimm13 {
		return 0, fmt.Errorf("%w: %d does not fit in 13 bits", ErrBadImmediate, v)
	}
	return int16(v), nil
}
