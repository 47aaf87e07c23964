package precompute

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uwes-ufo/CalcMySky/internal/opengl"
)

// writeRawFloats persists channel-interleaved float32 data little-endian.
// dims is the texture extent (outer to inner for 3D: depth, height, width
// is how consumers index; the data itself is in GL readback order). The
// byte count on disk is checked against the declared dimensions.
func writeRawFloats(path string, data []float32, dims []int) error {
	expected := 4
	for _, d := range dims {
		expected *= d
	}
	if len(data) != expected {
		return fmt.Errorf("%w: %s: have %d floats for dimensions %v (want %d)",
			ErrIo, path, len(data), dims, expected)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIo, path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIo, path, err)
	}
	return nil
}

func saveTexture(tex *opengl.Texture, path string) error {
	dims := []int{int(tex.Width), int(tex.Height)}
	if tex.Depth > 1 {
		dims = []int{int(tex.Depth), int(tex.Height), int(tex.Width)}
	}
	return writeRawFloats(path, tex.Pixels(), dims)
}

// Output file names, all under the destination directory.

func transmittanceFileName(dir string, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("transmittance-wlset%d.f32", setIndex))
}

func deltaIrradianceFileName(dir string, order, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("irradiance-delta-order%d-wlset%d.f32", order, setIndex))
}

func accumIrradianceFileName(dir string, order, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("irradiance-accum-order%d-wlset%d.f32", order, setIndex))
}

func finalIrradianceFileName(dir string, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("irradiance-wlset%d.f32", setIndex))
}

func scatteringDensityFileName(dir string, order, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("scattering-density%d-wlset%d.f32", order, setIndex))
}

func scatteringDensityFromGroundFileName(dir string, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("scattering-density2-from-ground-wlset%d.f32", setIndex))
}

func deltaScatteringFileName(dir string, order, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("delta-scattering-order%d-wlset%d.f32", order, setIndex))
}

func accumScatteringFileName(dir string, order, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("multiple-scattering-to-order%d-wlset%d.f32", order, setIndex))
}

func singleScatteringFileName(dir, species string, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("single-scattering-%s-wlset%d.f32", species, setIndex))
}

func finalScatteringRadianceFileName(dir string, setIndex int) string {
	return filepath.Join(dir, fmt.Sprintf("multiple-scattering-wlset%d.f32", setIndex))
}

func finalScatteringLuminanceFileName(dir string) string {
	return filepath.Join(dir, "multiple-scattering-xyzw.f32")
}
