package bytecode

import "fmt"

// Label names a code position that may not be known yet
type Label int

// Assembler collects the instructions of one method and resolves labels to
// instruction offsets when finished. It also tracks whether the next emitted
// instruction can be reached by straight-line control flow.
type Assembler struct {
	code       []Instruction
	labels     []int // offset per label, -1 while unplaced
	referenced []bool
	fixups     []fixup
	reachable  bool
}

type fixup struct {
	at    int
	label Label
}

func NewAssembler() *Assembler {
	return &Assembler{reachable: true}
}

// NewLabel allocates an unplaced label
func (a *Assembler) NewLabel() Label {
	a.labels = append(a.labels, -1)
	a.referenced = append(a.referenced, false)
	return Label(len(a.labels) - 1)
}

// Place binds the label to the offset of the next instruction. A label that
// some jump already targets makes the code after it reachable again.
func (a *Assembler) Place(l Label) {
	if a.labels[l] >= 0 {
		panic(fmt.Sprintf("label L%d placed twice", l))
	}
	a.labels[l] = len(a.code)
	if a.referenced[l] {
		a.reachable = true
	}
}

// Emit appends an instruction
func (a *Assembler) Emit(in Instruction) {
	a.code = append(a.code, in)
	if in.Op.EndsBlock() {
		a.reachable = false
	}
}

// Op appends an instruction without operands
func (a *Assembler) Op(op Opcode) {
	a.Emit(Instruction{Op: op})
}

// Jump appends a branch to the label
func (a *Assembler) Jump(op Opcode, l Label) {
	if !op.IsBranch() {
		panic(fmt.Sprintf("%s is not a branch", op))
	}
	a.fixups = append(a.fixups, fixup{at: len(a.code), label: l})
	a.referenced[l] = true
	a.Emit(Instruction{Op: op})
}

// Reachable reports whether straight-line control can reach the next instruction
func (a *Assembler) Reachable() bool {
	return a.reachable
}

// Finish resolves every branch target and returns the code
func (a *Assembler) Finish() ([]Instruction, error) {
	for _, f := range a.fixups {
		off := a.labels[f.label]
		if off < 0 {
			return nil, fmt.Errorf("branch at %d targets unplaced label L%d", f.at, f.label)
		}
		a.code[f.at].Target = off
	}
	return a.code, nil
}
