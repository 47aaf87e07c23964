package atmosphere

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testAtmosphere() *Atmosphere {
	return &Atmosphere{
		EarthRadius:      6.371e6,
		Height:           120e3,
		SunAngularRadius: 0.00459,
		Scatterers: []Scatterer{{
			Name:          "rayleigh",
			NumberDensity: "return 2.545e25*exp(-altitude/8000);",
			PhaseFunction: "return vec4(3./(16.*PI)*(1.+sqr(dotViewSun)));",
			CrossSection: CrossSection{
				Reference:           5.07e-31,
				ReferenceWavelength: 550,
				Exponent:            -4,
			},
		}},
		Wavelengths:                    [][4]float64{{440, 550, 610, 680}},
		SolarIrradiance:                []mgl32.Vec4{{1.8, 1.9, 1.7, 1.5}},
		ScatteringOrders:               4,
		ScatteringTextureSize:          [4]int{16, 8, 64, 16},
		TransmittanceTexSize:           [2]int{256, 64},
		IrradianceTexSize:              [2]int{64, 16},
		RadialIntegrationPoints:        50,
		TransmittanceIntegrationPoints: 250,
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := testAtmosphere().Validate(); err != nil {
		t.Fatalf("valid atmosphere rejected: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Atmosphere)
	}{
		{"empty scatterer name", func(a *Atmosphere) { a.Scatterers[0].Name = "" }},
		{"name with spaces", func(a *Atmosphere) { a.Scatterers[0].Name = "bad name" }},
		{"name starting with digit", func(a *Atmosphere) { a.Scatterers[0].Name = "2mie" }},
		{"duplicate species name", func(a *Atmosphere) {
			a.Absorbers = append(a.Absorbers, Absorber{
				Name:          "rayleigh",
				NumberDensity: "return 1.0;",
				CrossSection:  CrossSection{Reference: 1e-25, ReferenceWavelength: 550},
			})
		}},
		{"empty density", func(a *Atmosphere) { a.Scatterers[0].NumberDensity = "" }},
		{"empty phase function", func(a *Atmosphere) { a.Scatterers[0].PhaseFunction = "" }},
		{"no scatterers", func(a *Atmosphere) { a.Scatterers = nil }},
		{"no wavelength sets", func(a *Atmosphere) {
			a.Wavelengths = nil
			a.SolarIrradiance = nil
		}},
		{"negative wavelength", func(a *Atmosphere) { a.Wavelengths[0][0] = -440 }},
		{"duplicate within a set", func(a *Atmosphere) { a.Wavelengths[0][1] = 440 }},
		{"unsorted set", func(a *Atmosphere) { a.Wavelengths[0] = [4]float64{680, 550, 440, 380} }},
		{"overlapping sets", func(a *Atmosphere) {
			a.Wavelengths = append(a.Wavelengths, [4]float64{600, 640, 700, 760})
			a.SolarIrradiance = append(a.SolarIrradiance, mgl32.Vec4{1, 1, 1, 1})
		}},
		{"irradiance table size mismatch", func(a *Atmosphere) { a.SolarIrradiance = nil }},
		{"too few orders", func(a *Atmosphere) { a.ScatteringOrders = 1 }},
		{"zero texture dimension", func(a *Atmosphere) { a.ScatteringTextureSize[2] = 0 }},
		{"zero earth radius", func(a *Atmosphere) { a.EarthRadius = 0 }},
		{"single integration point", func(a *Atmosphere) { a.TransmittanceIntegrationPoints = 1 }},
		{"cross-section table size mismatch", func(a *Atmosphere) {
			a.Scatterers[0].CrossSection = CrossSection{PerSet: []mgl32.Vec4{{1, 1, 1, 1}, {1, 1, 1, 1}}}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			atm := testAtmosphere()
			tc.mutate(atm)
			err := atm.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrConfigInvalid) {
				t.Fatalf("error does not wrap ErrConfigInvalid: %v", err)
			}
		})
	}
}

func TestAllowsTouchingSets(t *testing.T) {
	atm := testAtmosphere()
	atm.Wavelengths = append(atm.Wavelengths, [4]float64{680, 700, 730, 760})
	atm.SolarIrradiance = append(atm.SolarIrradiance, mgl32.Vec4{1, 1, 1, 1})
	if err := atm.Validate(); err != nil {
		t.Fatalf("sets sharing a boundary wavelength should be accepted: %v", err)
	}
}

func TestCrossSectionPowerLaw(t *testing.T) {
	cs := CrossSection{Reference: 1e-30, ReferenceWavelength: 550, Exponent: -4}
	got := cs.At(0, [4]float64{440, 550, 610, 680})

	if math.Abs(float64(got[1])-1e-30) > 1e-36 {
		t.Errorf("cross-section at the reference wavelength = %g, want 1e-30", got[1])
	}
	want := 1e-30 * math.Pow(440.0/550.0, -4)
	if math.Abs(float64(got[0])-want)/want > 1e-5 {
		t.Errorf("cross-section at 440nm = %g, want %g", got[0], want)
	}
	if got[0] <= got[3] {
		t.Errorf("lambda^-4 law must fall with wavelength: sigma(440)=%g <= sigma(680)=%g", got[0], got[3])
	}
}

func TestCrossSectionExplicitTable(t *testing.T) {
	cs := CrossSection{
		Reference:           1e-30,
		ReferenceWavelength: 550,
		PerSet:              []mgl32.Vec4{{1, 2, 3, 4}, {5, 6, 7, 8}},
	}
	if got := cs.At(1, [4]float64{680, 700, 730, 760}); got != (mgl32.Vec4{5, 6, 7, 8}) {
		t.Errorf("explicit table must override the power law, got %v", got)
	}
}

func TestScatTexGeometry(t *testing.T) {
	atm := testAtmosphere()
	if w := atm.ScatTexWidth(); w != 16*8 {
		t.Errorf("ScatTexWidth = %d, want %d", w, 16*8)
	}
	if h := atm.ScatTexHeight(); h != 64 {
		t.Errorf("ScatTexHeight = %d, want 64", h)
	}
	if d := atm.ScatTexDepth(); d != 16 {
		t.Errorf("ScatTexDepth = %d, want 16", d)
	}
}

func TestLoadFile(t *testing.T) {
	const cfg = `{
		"earth_radius": 6371000,
		"atmosphere_height": 120000,
		"sun_angular_radius": 0.00459,
		"scatterers": [{
			"name": "rayleigh",
			"number_density": "return 2.545e25*exp(-altitude/8000);",
			"phase_function": "return vec4(3./(16.*PI)*(1.+sqr(dotViewSun)));",
			"cross_section": {"reference": 5.07e-31, "reference_wavelength": 550, "exponent": -4}
		}],
		"absorbers": [{
			"name": "ozone",
			"number_density": "return 1e18*exp(-sqr((altitude-25000)/15000));",
			"cross_section": {"per_set": [[1.8e-25, 3.5e-25, 4.5e-25, 2.0e-25]]}
		}],
		"wavelength_sets": [[440, 550, 610, 680]],
		"solar_irradiance": [[1.8, 1.9, 1.7, 1.5]],
		"scattering_orders": 4,
		"scattering_texture_size": [16, 8, 64, 16],
		"transmittance_texture_size": [256, 64],
		"irradiance_texture_size": [64, 16],
		"radial_integration_points": 50,
		"transmittance_integration_points": 250,
		"save_as_radiance": true
	}`
	path := filepath.Join(t.TempDir(), "atmosphere.json")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	atm, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(atm.Scatterers) != 1 || atm.Scatterers[0].Name != "rayleigh" {
		t.Errorf("unexpected scatterers: %+v", atm.Scatterers)
	}
	if len(atm.Absorbers) != 1 || atm.Absorbers[0].Name != "ozone" {
		t.Errorf("unexpected absorbers: %+v", atm.Absorbers)
	}
	if got := atm.Absorbers[0].CrossSection.At(0, atm.Wavelengths[0]); got[1] != 3.5e-25 {
		t.Errorf("ozone cross-section not taken from the explicit table: %v", got)
	}
	if !atm.SaveAsRadiance {
		t.Error("save_as_radiance flag lost in conversion")
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"earth_radius": -1}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("want ErrConfigInvalid, got %v", err)
	}
}
