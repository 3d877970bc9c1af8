package backend

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/lhaig/modc/internal/bytecode"
	"github.com/lhaig/modc/internal/vm"
)

func sampleUnit() *bytecode.Unit {
	return &bytecode.Unit{
		Name: "Sample",
		Fields: []*bytecode.Field{
			{Public: true, Name: "count", Desc: "I"},
			{Name: "names", Desc: "[Ljava/lang/String;"},
		},
		Methods: []*bytecode.Method{
			{
				Public:    true,
				Name:      "pick",
				Desc:      "(I)I",
				MaxLocals: 1,
				MaxStack:  2,
				Code: []bytecode.Instruction{
					{Op: bytecode.ILOAD, Int: 0},
					{Op: bytecode.IFEQ, Target: 4},
					{Op: bytecode.ICONST, Int: -300},
					{Op: bytecode.IRETURN},
					{Op: bytecode.GETSTATIC, Owner: "Sample", Name: "count", Desc: "I"},
					{Op: bytecode.IRETURN},
				},
			},
			{
				Name:      "greet",
				Desc:      "()Ljava/lang/String;",
				MaxLocals: 0,
				MaxStack:  1,
				Code: []bytecode.Instruction{
					{Op: bytecode.LDC, Str: "héllo"},
					{Op: bytecode.ARETURN},
				},
			},
		},
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"listing", "image"} {
		e, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if e.Name() != name || !strings.HasPrefix(e.Ext(), ".") {
			t.Errorf("emitter %q reports name %q ext %q", name, e.Name(), e.Ext())
		}
	}
	if _, err := Lookup("rust"); err == nil || !strings.Contains(err.Error(), "image, listing") {
		t.Errorf("expected an unknown emitter error listing the choices, got %v", err)
	}
}

func TestListingEmitter(t *testing.T) {
	out, err := (&ListingEmitter{}).Emit(sampleUnit())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "unit Sample\n") {
		t.Errorf("unexpected listing:\n%s", out)
	}
}

func TestImageHeader(t *testing.T) {
	out, err := (&ImageEmitter{}).Emit(sampleUnit())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte{0x00, 0x6D, 0x64, 0x63, 0x01, 0x00, 0x00, 0x00}) {
		t.Errorf("unexpected header % x", out[:8])
	}
	if out[8] != sectionName {
		t.Errorf("first section is %d, expected the name section", out[8])
	}
}

func TestImageRoundTrip(t *testing.T) {
	u := sampleUnit()
	out, err := (&ImageEmitter{}).Emit(u)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeImage(out)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if !reflect.DeepEqual(got, u) {
		t.Errorf("decoded unit differs:\n got  %s\n want %s", bytecode.Listing(got), bytecode.Listing(u))
	}
}

func TestDecodedImageRuns(t *testing.T) {
	out, err := (&ImageEmitter{}).Emit(sampleUnit())
	if err != nil {
		t.Fatal(err)
	}
	u, err := DecodeImage(out)
	if err != nil {
		t.Fatal(err)
	}
	l := vm.NewLoader()
	if err := l.Load(u); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, err := l.Invoke("Sample", "pick", 1); err != nil || v != int32(-300) {
		t.Errorf("pick(1) = %v, %v", v, err)
	}
	if v, err := l.Invoke("Sample", "pick", 0); err != nil || v != int32(0) {
		t.Errorf("pick(0) = %v, %v", v, err)
	}
	if v, err := l.Invoke("Sample", "greet"); err != nil || v != "héllo" {
		t.Errorf("greet() = %v, %v", v, err)
	}
}

func TestDecodeImageErrors(t *testing.T) {
	good, err := (&ImageEmitter{}).Emit(sampleUnit())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		data   []byte
		substr string
	}{
		{"empty", nil, "bad magic"},
		{"wrong magic", append([]byte("\x00asm"), good[4:]...), "bad magic"},
		{"wrong version", append(append([]byte{}, good[:4]...), append([]byte{2, 0, 0, 0}, good[8:]...)...), "unsupported version"},
		{"truncated", good[:len(good)-3], "unexpected end of image"},
		{"trailing bytes", append(append([]byte{}, good...), 0xFF), "trailing byte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeImage(tt.data)
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("expected error containing %q, got %v", tt.substr, err)
			}
		})
	}
}

func TestEmitRejectsInvalidOpcode(t *testing.T) {
	u := &bytecode.Unit{Name: "X", Methods: []*bytecode.Method{{Name: "f", Desc: "()V", Code: []bytecode.Instruction{{Op: 0}}}}}
	if _, err := (&ImageEmitter{}).Emit(u); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLEB128(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, 64, -64, -65, 300, -300, 2147483647, -2147483648} {
		r := &reader{data: encodeLEB128S(v)}
		if got := r.readS(); got != v || r.err != nil || r.off != len(r.data) {
			t.Errorf("signed %d decoded as %d (err %v)", v, got, r.err)
		}
	}
	for _, v := range []uint64{0, 1, 127, 128, 16384, 1 << 40} {
		r := &reader{data: encodeLEB128U(v)}
		if got := r.readU(); got != v || r.err != nil {
			t.Errorf("unsigned %d decoded as %d (err %v)", v, got, r.err)
		}
	}
}
