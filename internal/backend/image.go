package backend

import (
	"bytes"
	"fmt"

	"github.com/lhaig/modc/internal/bytecode"
)

// Image format constants
var imageMagic = []byte{0x00, 0x6D, 0x64, 0x63} // \0mdc
var imageVersion = []byte{0x01, 0x00, 0x00, 0x00}

// Section IDs, written in this order
const (
	sectionName    byte = 1
	sectionFields  byte = 2
	sectionMethods byte = 3
)

const flagPublic byte = 0x01

// ImageEmitter writes a compact binary image of a unit: magic and version,
// then length-prefixed sections holding the name, fields and methods.
type ImageEmitter struct{}

func (e *ImageEmitter) Name() string { return "image" }

func (e *ImageEmitter) Ext() string { return ".mdc" }

func (e *ImageEmitter) Emit(u *bytecode.Unit) ([]byte, error) {
	var out []byte
	out = append(out, imageMagic...)
	out = append(out, imageVersion...)

	out = append(out, encodeSection(sectionName, encodeString(u.Name))...)

	var fields []byte
	for _, f := range u.Fields {
		fields = append(fields, flags(f.Public))
		fields = append(fields, encodeString(f.Name)...)
		fields = append(fields, encodeString(f.Desc)...)
	}
	out = append(out, encodeSection(sectionFields, encodeVector(len(u.Fields), fields))...)

	var methods []byte
	for _, m := range u.Methods {
		body, err := encodeMethod(m)
		if err != nil {
			return nil, fmt.Errorf("emit %s.%s: %w", u.Name, m.Name, err)
		}
		methods = append(methods, body...)
	}
	out = append(out, encodeSection(sectionMethods, encodeVector(len(u.Methods), methods))...)
	return out, nil
}

func flags(public bool) byte {
	if public {
		return flagPublic
	}
	return 0
}

func encodeMethod(m *bytecode.Method) ([]byte, error) {
	out := []byte{flags(m.Public)}
	out = append(out, encodeString(m.Name)...)
	out = append(out, encodeString(m.Desc)...)
	out = append(out, encodeLEB128U(uint64(m.MaxLocals))...)
	out = append(out, encodeLEB128U(uint64(m.MaxStack))...)

	var code []byte
	for i, in := range m.Code {
		if !in.Op.Valid() {
			return nil, fmt.Errorf("instruction %d: invalid opcode %s", i, in.Op)
		}
		code = append(code, byte(in.Op))
		switch operandsOf(in.Op) {
		case operandInt:
			code = append(code, encodeLEB128S(int64(in.Int))...)
		case operandString:
			code = append(code, encodeString(in.Str)...)
		case operandDesc:
			code = append(code, encodeString(in.Desc)...)
		case operandMember:
			code = append(code, encodeString(in.Owner)...)
			code = append(code, encodeString(in.Name)...)
			code = append(code, encodeString(in.Desc)...)
		case operandTarget:
			if in.Target < 0 {
				return nil, fmt.Errorf("instruction %d: negative branch target", i)
			}
			code = append(code, encodeLEB128U(uint64(in.Target))...)
		}
	}
	return append(out, encodeVector(len(m.Code), code)...), nil
}

type operandKind int

const (
	operandNone operandKind = iota
	operandInt
	operandString
	operandDesc
	operandMember
	operandTarget
)

func operandsOf(op bytecode.Opcode) operandKind {
	switch {
	case op == bytecode.ICONST, op == bytecode.ILOAD, op == bytecode.ISTORE,
		op == bytecode.ALOAD, op == bytecode.ASTORE:
		return operandInt
	case op == bytecode.LDC:
		return operandString
	case op == bytecode.NEWARRAY:
		return operandDesc
	case op == bytecode.GETSTATIC, op == bytecode.PUTSTATIC, op == bytecode.INVOKESTATIC:
		return operandMember
	case op.IsBranch():
		return operandTarget
	default:
		return operandNone
	}
}

// DecodeImage reads a unit written by ImageEmitter
func DecodeImage(data []byte) (*bytecode.Unit, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], imageMagic) {
		return nil, fmt.Errorf("decode image: bad magic")
	}
	if !bytes.Equal(data[4:8], imageVersion) {
		return nil, fmt.Errorf("decode image: unsupported version %v", data[4:8])
	}
	r := &reader{data: data, off: 8}
	u := &bytecode.Unit{}

	for _, want := range []byte{sectionName, sectionFields, sectionMethods} {
		id := r.readByte()
		size := r.readCount()
		if r.err != nil {
			break
		}
		if id != want {
			return nil, fmt.Errorf("decode image: expected section %d, got %d", want, id)
		}
		sec := &reader{data: r.readBytes(size)}
		switch id {
		case sectionName:
			u.Name = sec.readString()
		case sectionFields:
			n := sec.readCount()
			for i := 0; i < n && sec.err == nil; i++ {
				f := &bytecode.Field{Public: sec.readByte()&flagPublic != 0}
				f.Name = sec.readString()
				f.Desc = sec.readString()
				u.Fields = append(u.Fields, f)
			}
		case sectionMethods:
			n := sec.readCount()
			for i := 0; i < n && sec.err == nil; i++ {
				u.Methods = append(u.Methods, decodeMethod(sec))
			}
		}
		if sec.err == nil && sec.off != len(sec.data) {
			sec.fail(fmt.Errorf("%d trailing byte(s)", len(sec.data)-sec.off))
		}
		if sec.err != nil {
			return nil, fmt.Errorf("decode image: section %d: %w", id, sec.err)
		}
	}
	if r.err == nil && r.off != len(r.data) {
		r.fail(fmt.Errorf("%d trailing byte(s)", len(r.data)-r.off))
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode image: %w", r.err)
	}
	return u, nil
}

func decodeMethod(r *reader) *bytecode.Method {
	m := &bytecode.Method{Public: r.readByte()&flagPublic != 0}
	m.Name = r.readString()
	m.Desc = r.readString()
	m.MaxLocals = int(r.readU())
	m.MaxStack = int(r.readU())

	n := r.readCount()
	for i := 0; i < n && r.err == nil; i++ {
		in := bytecode.Instruction{Op: bytecode.Opcode(r.readByte())}
		if r.err == nil && !in.Op.Valid() {
			r.fail(fmt.Errorf("invalid opcode %d", byte(in.Op)))
			break
		}
		switch operandsOf(in.Op) {
		case operandInt:
			in.Int = int32(r.readS())
		case operandString:
			in.Str = r.readString()
		case operandDesc:
			in.Desc = r.readString()
		case operandMember:
			in.Owner = r.readString()
			in.Name = r.readString()
			in.Desc = r.readString()
		case operandTarget:
			in.Target = int(r.readU())
		}
		m.Code = append(m.Code, in)
	}
	return m
}
