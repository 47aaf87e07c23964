package spectral

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLuminousEfficacy converts radiometric to photometric units, in lm/W.
// The fourth slot uses the scotopic constant so the W channel can carry
// scotopic luminance.
// Ref: Rapport BIPM-2019/05, Principles Governing Photometry, 2nd edition,
// sections 6.2 and 6.3.
var MaxLuminousEfficacy = mgl32.Diag4(mgl32.Vec4{683.002, 683.002, 683.002, 1700.13})

// TrapezoidWeights returns the diagonal quadrature weights for the four
// wavelengths of set setIndex out of setCount sets covering the spectrum.
// Endpoints of the whole spectrum get weight 1/2, interior points 1.
func TrapezoidWeights(setIndex, setCount int) mgl32.Vec4 {
	if setCount < 1 || setIndex < 0 || setIndex >= setCount {
		panic(fmt.Sprintf("spectral: set index %d out of range for %d sets", setIndex, setCount))
	}
	switch {
	case setCount == 1:
		return mgl32.Vec4{0.5, 1, 1, 0.5}
	case setIndex == 0:
		return mgl32.Vec4{0.5, 1, 1, 1}
	case setIndex == setCount-1:
		return mgl32.Vec4{1, 1, 1, 0.5}
	default:
		return mgl32.Vec4{1, 1, 1, 1}
	}
}

// DeltaLambda is the uniform wavelength step implied by a schedule of
// four-wavelength sets spanning the spectrum.
func DeltaLambda(wavelengths [][4]float64) float64 {
	n := len(wavelengths)
	return math.Abs(wavelengths[n-1][3]-wavelengths[0][0]) / float64(4*n-1)
}

// RadianceToLuminance builds the per-set matrix that converts a vec4 of
// spectral radiance samples into CIE (X, Y, Z, W): luminous efficacy times
// the colour matching functions of the set's wavelengths times the
// Δλ-scaled trapezoid weights.
func RadianceToLuminance(wavelengths [][4]float64, setIndex int) mgl32.Mat4 {
	set := wavelengths[setIndex]
	cie := mgl32.Mat4FromCols(
		WavelengthToXYZW(set[0]),
		WavelengthToXYZW(set[1]),
		WavelengthToXYZW(set[2]),
		WavelengthToXYZW(set[3]),
	)
	dl := float32(DeltaLambda(wavelengths))
	weights := TrapezoidWeights(setIndex, len(wavelengths)).Mul(dl)
	return MaxLuminousEfficacy.Mul4(cie).Mul4(mgl32.Diag4(weights))
}
