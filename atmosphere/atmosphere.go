package atmosphere

import (
	"fmt"
	"math"
	"regexp"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrConfigInvalid is wrapped by every validation failure of an
// atmosphere description.
var ErrConfigInvalid = fmt.Errorf("atmosphere description is invalid")

// CrossSection describes the spectral absorption or scattering cross-section
// of a species, in m^2 per particle. The power law
//
//	sigma(lambda) = Reference * (lambda/ReferenceWavelength)^Exponent
//
// covers Rayleigh-like (Exponent ~ -4) and grey (Exponent = 0) species.
// PerSet, when non-empty, holds one explicit vec4 per wavelength set and
// overrides the power law (used for tabulated absorbers such as ozone).
type CrossSection struct {
	Reference           float64
	ReferenceWavelength float64 // nm
	Exponent            float64
	PerSet              []mgl32.Vec4
}

// At evaluates the cross-section for the four wavelengths of one set.
func (c CrossSection) At(setIndex int, wavelengths [4]float64) mgl32.Vec4 {
	if len(c.PerSet) > 0 {
		return c.PerSet[setIndex]
	}
	var out mgl32.Vec4
	for i, wl := range wavelengths {
		out[i] = float32(c.Reference * math.Pow(wl/c.ReferenceWavelength, c.Exponent))
	}
	return out
}

// Scatterer is a species that both attenuates and redirects light.
// NumberDensity and PhaseFunction are GLSL function bodies: the former reads
// `altitude` (meters) and returns a number density in m^-3, the latter reads
// `dotViewSun` and returns a vec4 phase function value.
type Scatterer struct {
	Name          string
	NumberDensity string
	PhaseFunction string
	CrossSection  CrossSection
}

// Absorber is a species that only attenuates light (no phase function).
type Absorber struct {
	Name          string
	NumberDensity string
	CrossSection  CrossSection
}

// Atmosphere is the full description consumed by the precomputation
// pipeline. Lengths are meters, angles radians, wavelengths nanometers.
type Atmosphere struct {
	EarthRadius      float64
	Height           float64
	SunAngularRadius float64

	Scatterers []Scatterer
	Absorbers  []Absorber

	// Wavelengths holds the schedule of four-wavelength sets; one GPU pass
	// covers one set. SolarIrradiance holds the spectral irradiance at the
	// top of the atmosphere for each set, in W/m^2/nm.
	Wavelengths     [][4]float64
	SolarIrradiance []mgl32.Vec4

	ScatteringOrders int

	// ScatteringTextureSize is the 4-D size (muS, nu, mu, altitude) of the
	// scattering textures, stored as a 3-D texture of
	// [0]*[1] x [2] x [3] texels.
	ScatteringTextureSize [4]int
	TransmittanceTexSize  [2]int
	IrradianceTexSize     [2]int

	RadialIntegrationPoints        int
	TransmittanceIntegrationPoints int

	SaveAsRadiance bool
}

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the description for the invariants the pipeline relies on.
// All violations wrap ErrConfigInvalid.
func (atm *Atmosphere) Validate() error {
	if atm.EarthRadius <= 0 {
		return fmt.Errorf("%w: earth radius must be positive, got %g", ErrConfigInvalid, atm.EarthRadius)
	}
	if atm.Height <= 0 {
		return fmt.Errorf("%w: atmosphere height must be positive, got %g", ErrConfigInvalid, atm.Height)
	}
	if atm.SunAngularRadius <= 0 {
		return fmt.Errorf("%w: sun angular radius must be positive, got %g", ErrConfigInvalid, atm.SunAngularRadius)
	}
	if len(atm.Scatterers) == 0 {
		return fmt.Errorf("%w: at least one scatterer is required", ErrConfigInvalid)
	}

	seen := map[string]bool{}
	for _, s := range atm.Scatterers {
		if err := checkSpeciesName(seen, s.Name, "scatterer"); err != nil {
			return err
		}
		if s.NumberDensity == "" {
			return fmt.Errorf("%w: scatterer %q has an empty number density expression", ErrConfigInvalid, s.Name)
		}
		if s.PhaseFunction == "" {
			return fmt.Errorf("%w: scatterer %q has an empty phase function expression", ErrConfigInvalid, s.Name)
		}
		if err := checkCrossSection(s.CrossSection, s.Name, len(atm.Wavelengths)); err != nil {
			return err
		}
	}
	for _, a := range atm.Absorbers {
		if err := checkSpeciesName(seen, a.Name, "absorber"); err != nil {
			return err
		}
		if a.NumberDensity == "" {
			return fmt.Errorf("%w: absorber %q has an empty number density expression", ErrConfigInvalid, a.Name)
		}
		if err := checkCrossSection(a.CrossSection, a.Name, len(atm.Wavelengths)); err != nil {
			return err
		}
	}

	if len(atm.Wavelengths) == 0 {
		return fmt.Errorf("%w: at least one wavelength set is required", ErrConfigInvalid)
	}
	prev := 0.0
	for i, set := range atm.Wavelengths {
		for j, wl := range set {
			if wl <= 0 {
				return fmt.Errorf("%w: wavelength set %d entry %d is not positive: %g", ErrConfigInvalid, i, j, wl)
			}
			if j > 0 && wl <= set[j-1] {
				return fmt.Errorf("%w: wavelength set %d is not strictly increasing: %g after %g",
					ErrConfigInvalid, i, wl, set[j-1])
			}
		}
		// Duplicates are allowed on set boundaries but never within a set.
		if i > 0 && set[0] < prev {
			return fmt.Errorf("%w: wavelength set %d starts at %g nm, below the previous set's end %g nm",
				ErrConfigInvalid, i, set[0], prev)
		}
		prev = set[3]
	}
	if len(atm.SolarIrradiance) != len(atm.Wavelengths) {
		return fmt.Errorf("%w: solar irradiance table has %d entries for %d wavelength sets",
			ErrConfigInvalid, len(atm.SolarIrradiance), len(atm.Wavelengths))
	}

	if atm.ScatteringOrders < 2 {
		return fmt.Errorf("%w: at least 2 scattering orders must be computed, got %d", ErrConfigInvalid, atm.ScatteringOrders)
	}
	for i, n := range atm.ScatteringTextureSize {
		if n <= 0 {
			return fmt.Errorf("%w: scattering texture dimension %d is not positive: %d", ErrConfigInvalid, i, n)
		}
	}
	if atm.TransmittanceTexSize[0] <= 0 || atm.TransmittanceTexSize[1] <= 0 {
		return fmt.Errorf("%w: transmittance texture size must be positive, got %v", ErrConfigInvalid, atm.TransmittanceTexSize)
	}
	if atm.IrradianceTexSize[0] <= 0 || atm.IrradianceTexSize[1] <= 0 {
		return fmt.Errorf("%w: irradiance texture size must be positive, got %v", ErrConfigInvalid, atm.IrradianceTexSize)
	}
	if atm.RadialIntegrationPoints < 2 {
		return fmt.Errorf("%w: at least 2 radial integration points are required, got %d", ErrConfigInvalid, atm.RadialIntegrationPoints)
	}
	if atm.TransmittanceIntegrationPoints < 2 {
		return fmt.Errorf("%w: at least 2 transmittance integration points are required, got %d",
			ErrConfigInvalid, atm.TransmittanceIntegrationPoints)
	}
	return nil
}

func checkSpeciesName(seen map[string]bool, name, kind string) error {
	if !identRegexp.MatchString(name) {
		return fmt.Errorf("%w: %s name %q is not a valid identifier", ErrConfigInvalid, kind, name)
	}
	if seen[name] {
		return fmt.Errorf("%w: species name %q is declared more than once", ErrConfigInvalid, name)
	}
	seen[name] = true
	return nil
}

func checkCrossSection(c CrossSection, name string, setCount int) error {
	if len(c.PerSet) > 0 {
		if len(c.PerSet) != setCount {
			return fmt.Errorf("%w: species %q declares %d explicit cross-sections for %d wavelength sets",
				ErrConfigInvalid, name, len(c.PerSet), setCount)
		}
		return nil
	}
	if c.Reference <= 0 || c.ReferenceWavelength <= 0 {
		return fmt.Errorf("%w: species %q needs a positive reference cross-section and wavelength", ErrConfigInvalid, name)
	}
	return nil
}

// ScatTexWidth and ScatTexHeight give the 2D extent of one layer of the
// 3D-encoded scattering texture; ScatTexDepth is the layer count.
func (atm *Atmosphere) ScatTexWidth() int {
	return atm.ScatteringTextureSize[0] * atm.ScatteringTextureSize[1]
}

func (atm *Atmosphere) ScatTexHeight() int { return atm.ScatteringTextureSize[2] }

func (atm *Atmosphere) ScatTexDepth() int { return atm.ScatteringTextureSize[3] }
