package precompute

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteRawFloatsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tex.f32")

	const w, h = 3, 2
	data := make([]float32, w*h*4)
	for i := range data {
		data[i] = float32(i) * 0.5
	}
	if err := writeRawFloats(path, data, []int{w, h}); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != w*h*4*4 {
		t.Fatalf("file is %d bytes, want %d", len(raw), w*h*4*4)
	}
	for i := range data {
		got := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		if got != data[i] {
			t.Fatalf("float %d = %g, want %g", i, got, data[i])
		}
	}
}

func TestWriteRawFloatsChecksDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tex.f32")
	err := writeRawFloats(path, make([]float32, 10), []int{4, 4})
	if !errors.Is(err, ErrIo) {
		t.Fatalf("want ErrIo on dimension mismatch, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("no file must be created on dimension mismatch")
	}
}

func TestWriteRawFloats3D(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tex3d.f32")
	const w, h, d = 4, 2, 3
	if err := writeRawFloats(path, make([]float32, w*h*d*4), []int{d, h, w}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != w*h*d*4*4 {
		t.Errorf("3D file is %d bytes, want %d", info.Size(), w*h*d*4*4)
	}
}

func TestWriteRawFloatsUnwritableDir(t *testing.T) {
	err := writeRawFloats("/proc/no-such-dir/tex.f32", make([]float32, 4), []int{1, 1})
	if !errors.Is(err, ErrIo) {
		t.Fatalf("want ErrIo for unwritable destination, got %v", err)
	}
}

func TestFileNames(t *testing.T) {
	dir := "out"
	tests := []struct{ got, want string }{
		{transmittanceFileName(dir, 0), "out/transmittance-wlset0.f32"},
		{deltaIrradianceFileName(dir, 1, 2), "out/irradiance-delta-order1-wlset2.f32"},
		{accumIrradianceFileName(dir, 3, 0), "out/irradiance-accum-order3-wlset0.f32"},
		{finalIrradianceFileName(dir, 1), "out/irradiance-wlset1.f32"},
		{scatteringDensityFileName(dir, 2, 1), "out/scattering-density2-wlset1.f32"},
		{scatteringDensityFromGroundFileName(dir, 0), "out/scattering-density2-from-ground-wlset0.f32"},
		{deltaScatteringFileName(dir, 3, 1), "out/delta-scattering-order3-wlset1.f32"},
		{accumScatteringFileName(dir, 4, 1), "out/multiple-scattering-to-order4-wlset1.f32"},
		{singleScatteringFileName(dir, "rayleigh", 0), "out/single-scattering-rayleigh-wlset0.f32"},
		{finalScatteringRadianceFileName(dir, 2), "out/multiple-scattering-wlset2.f32"},
		{finalScatteringLuminanceFileName(dir), "out/multiple-scattering-xyzw.f32"},
	}
	for _, tc := range tests {
		if filepath.ToSlash(tc.got) != tc.want {
			t.Errorf("file name = %q, want %q", tc.got, tc.want)
		}
	}
}
