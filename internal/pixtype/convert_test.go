package pixtype

import "testing"

func TestLen(t *testing.T) {
	if got := Len([]float32{1, 2, 3}, F32); got != 3 {
		t.Errorf("Len(F32) = %d, want 3", got)
	}
	if got := Len([]uint16{1, 2}, U16); got != 2 {
		t.Errorf("Len(U16) = %d, want 2", got)
	}
	if got := Len([]int32{}, DType(99)); got != 0 {
		t.Errorf("Len(unknown) = %d, want 0", got)
	}
}

func TestAsF32(t *testing.T) {
	src := []float32{1, 2, 3}
	got := AsF32(src, F32)
	if len(got) != len(src) || &got[0] != &src[0] {
		t.Fatalf("AsF32 should return the same backing array, got %v", got)
	}
	if AsF32([]float64{1, 2}, F64) != nil {
		t.Errorf("AsF32(F64) should be nil")
	}
}

func TestFillRowConverts(t *testing.T) {
	dst := make([]float32, 3)
	src := []float64{1.5, 2.5, 3.5}
	out := FillRow(dst, src, F64, 0, 3)
	want := []float32{1.5, 2.5, 3.5}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("FillRow[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestFillRowOffset(t *testing.T) {
	dst := make([]float32, 2)
	src := []int32{10, 20, 30, 40}
	out := FillRow(dst, src, I32, 1, 2)
	if out[0] != 20 || out[1] != 30 {
		t.Errorf("FillRow with offset = %v, want [20 30]", out)
	}
}

func TestAt(t *testing.T) {
	if At([]uint16{7, 8}, U16, 1) != 8 {
		t.Errorf("At(U16,1) != 8")
	}
	if At([]int32{}, DType(99), 0) != 0 {
		t.Errorf("At(unknown) should default to 0")
	}
}

func TestSupported(t *testing.T) {
	for _, d := range []DType{F32, F64, I32, U16} {
		if !Supported(d) {
			t.Errorf("Supported(%v) = false, want true", d)
		}
	}
	if Supported(DType(99)) {
		t.Errorf("Supported(unknown) = true, want false")
	}
}

func TestDTypeString(t *testing.T) {
	cases := map[DType]string{F32: "F32", F64: "F64", I32: "I32", U16: "U16", DType(99): "unknown"}
	for d, want := range cases {
		if got := d.String(); got != want {
			t.Errorf("DType(%d).String() = %q, want %q", d, got, want)
		}
	}
}
