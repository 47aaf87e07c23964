package spectral

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Piecewise-Gaussian lobe used by the Wyman–Shirley–Sloan fit of the
// CIE 1931 colour matching functions.
func cieLobe(wavelength, alpha, mu, sigmaL, sigmaR float64) float64 {
	sigma := sigmaL
	if wavelength >= mu {
		sigma = sigmaR
	}
	t := (wavelength - mu) / sigma
	return alpha * math.Exp(-0.5*t*t)
}

// WavelengthToXYZW returns the CIE 1931 colour matching functions x̄, ȳ, z̄
// at the given wavelength (nm), plus the scotopic luminous efficiency V′ in
// the fourth component. The XYZ fits follow Wyman, Shirley & Sloan (2013);
// V′ is a single-Gaussian fit of the CIE 1951 scotopic observer peaking at
// 507 nm.
func WavelengthToXYZW(wavelength float64) mgl32.Vec4 {
	x := cieLobe(wavelength, 1.056, 599.8, 37.9, 31.0) +
		cieLobe(wavelength, 0.362, 442.0, 16.0, 26.7) +
		cieLobe(wavelength, -0.065, 501.1, 20.4, 26.2)
	y := cieLobe(wavelength, 0.821, 568.8, 46.9, 40.5) +
		cieLobe(wavelength, 0.286, 530.9, 16.3, 31.1)
	z := cieLobe(wavelength, 1.217, 437.0, 11.8, 36.0) +
		cieLobe(wavelength, 0.681, 459.0, 26.0, 13.8)
	w := cieLobe(wavelength, 1.0, 507.0, 38.6, 44.6)
	return mgl32.Vec4{float32(x), float32(y), float32(z), float32(w)}
}
