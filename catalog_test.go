package sep

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildCatalogMeasuresKronAndAutoFlux(t *testing.T) {
	buf := diskImage(64, 64, 1)
	list := ObjectList{Objects: []Object{
		{
			MX: 32, MY: 32,
			XMin: 22, XMax: 42, YMin: 22, YMax: 42,
			CXX: 1, CYY: 1, CXY: 0,
			Flux: 100, FluxErr: 1,
		},
	}}
	entries, err := BuildCatalog(buf, list)
	if err != nil {
		t.Fatalf("BuildCatalog error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Index != 1 {
		t.Errorf("Index = %d, want 1", e.Index)
	}
	if e.KronRadius <= 0 {
		t.Errorf("KronRadius = %v, want > 0", e.KronRadius)
	}
	if e.FluxAuto <= 0 {
		t.Errorf("FluxAuto = %v, want > 0", e.FluxAuto)
	}
}

func TestBuildCatalogRejectsInvalidBuffer(t *testing.T) {
	buf := NewFloat32Buffer([]float32{1, 2}, 0, 2)
	if _, err := BuildCatalog(buf, ObjectList{}); err == nil {
		t.Fatal("expected error for invalid buffer")
	}
}

func TestBuildCatalogFlagsCrowdedOnNonPositiveKronFlux(t *testing.T) {
	buf := diskImage(16, 16, 0)
	list := ObjectList{Objects: []Object{
		{MX: 8, MY: 8, XMin: 6, XMax: 10, YMin: 6, YMax: 10, CXX: 1, CYY: 1, CXY: 0},
	}}
	entries, err := BuildCatalog(buf, list)
	if err != nil {
		t.Fatalf("BuildCatalog error: %v", err)
	}
	if entries[0].Flags&ObjCrowded == 0 {
		t.Error("expected ObjCrowded flag when Kron flux is non-positive")
	}
}

func TestWriteCatalogFormat(t *testing.T) {
	entries := []CatalogEntry{
		{Index: 1, X: 10.5, Y: 20.25, Flux: 123.456, FluxErr: 1.1, KronRadius: 3.0, FluxAuto: 200.0, FluxErrAuto: 2.0, Flags: ObjTrunc},
	}
	var buf bytes.Buffer
	if err := WriteCatalog(&buf, entries); err != nil {
		t.Fatalf("WriteCatalog error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2 (header + 1 row)", len(lines))
	}
	if lines[0] != "# index x y flux fluxerr kronrad flux_auto fluxerr_auto flags" {
		t.Errorf("header = %q", lines[0])
	}
	wantRow := "1 10.5 20.25 123.456 1.1 7.5 200 2 2"
	if lines[1] != wantRow {
		t.Errorf("row = %q, want %q", lines[1], wantRow)
	}
}
