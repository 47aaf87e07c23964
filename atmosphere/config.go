package atmosphere

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// ConfigFile is the on-disk JSON form of an atmosphere description.
type ConfigFile struct {
	EarthRadius      float64 `json:"earth_radius"`
	AtmosphereHeight float64 `json:"atmosphere_height"`
	SunAngularRadius float64 `json:"sun_angular_radius"`

	Scatterers []SpeciesData `json:"scatterers"`
	Absorbers  []SpeciesData `json:"absorbers"`

	WavelengthSets  [][4]float64 `json:"wavelength_sets"`
	SolarIrradiance [][4]float64 `json:"solar_irradiance"`

	ScatteringOrders int `json:"scattering_orders"`

	ScatteringTextureSize   [4]int `json:"scattering_texture_size"`
	TransmittanceTexSize    [2]int `json:"transmittance_texture_size"`
	IrradianceTexSize       [2]int `json:"irradiance_texture_size"`
	RadialIntegrationPoints int    `json:"radial_integration_points"`
	TransmittanceIntPoints  int    `json:"transmittance_integration_points"`

	SaveAsRadiance bool `json:"save_as_radiance"`
}

// SpeciesData stores one scatterer or absorber. PhaseFunction is ignored for
// absorbers.
type SpeciesData struct {
	Name          string       `json:"name"`
	NumberDensity string       `json:"number_density"`
	PhaseFunction string       `json:"phase_function,omitempty"`
	CrossSection  CrossSecData `json:"cross_section"`
}

// CrossSecData stores either a power-law cross-section or an explicit
// per-wavelength-set table (which wins when present).
type CrossSecData struct {
	Reference           float64      `json:"reference,omitempty"`
	ReferenceWavelength float64      `json:"reference_wavelength,omitempty"`
	Exponent            float64      `json:"exponent,omitempty"`
	PerSet              [][4]float64 `json:"per_set,omitempty"`
}

// LoadFile reads a JSON atmosphere description and validates it.
func LoadFile(path string) (*Atmosphere, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read atmosphere description: %w", err)
	}

	var cfg ConfigFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrConfigInvalid, path, err)
	}

	atm := cfg.ToAtmosphere()
	if err := atm.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return atm, nil
}

// ToAtmosphere converts the decoded file into the model the pipeline runs on.
func (cfg *ConfigFile) ToAtmosphere() *Atmosphere {
	atm := &Atmosphere{
		EarthRadius:                    cfg.EarthRadius,
		Height:                         cfg.AtmosphereHeight,
		SunAngularRadius:               cfg.SunAngularRadius,
		Wavelengths:                    cfg.WavelengthSets,
		ScatteringOrders:               cfg.ScatteringOrders,
		ScatteringTextureSize:          cfg.ScatteringTextureSize,
		TransmittanceTexSize:           cfg.TransmittanceTexSize,
		IrradianceTexSize:              cfg.IrradianceTexSize,
		RadialIntegrationPoints:        cfg.RadialIntegrationPoints,
		TransmittanceIntegrationPoints: cfg.TransmittanceIntPoints,
		SaveAsRadiance:                 cfg.SaveAsRadiance,
	}
	for _, si := range cfg.SolarIrradiance {
		atm.SolarIrradiance = append(atm.SolarIrradiance, vec4(si))
	}
	for _, s := range cfg.Scatterers {
		atm.Scatterers = append(atm.Scatterers, Scatterer{
			Name:          s.Name,
			NumberDensity: s.NumberDensity,
			PhaseFunction: s.PhaseFunction,
			CrossSection:  s.CrossSection.toCrossSection(),
		})
	}
	for _, a := range cfg.Absorbers {
		atm.Absorbers = append(atm.Absorbers, Absorber{
			Name:          a.Name,
			NumberDensity: a.NumberDensity,
			CrossSection:  a.CrossSection.toCrossSection(),
		})
	}
	return atm
}

func (c CrossSecData) toCrossSection() CrossSection {
	cs := CrossSection{
		Reference:           c.Reference,
		ReferenceWavelength: c.ReferenceWavelength,
		Exponent:            c.Exponent,
	}
	for _, v := range c.PerSet {
		cs.PerSet = append(cs.PerSet, vec4(v))
	}
	return cs
}

func vec4(v [4]float64) mgl32.Vec4 {
	return mgl32.Vec4{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])}
}
