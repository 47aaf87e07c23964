package shaders

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/uwes-ufo/CalcMySky/atmosphere"
)

const versionHead = "#version 410 core\n"

// FormatFloat renders a scalar the way the generated GLSL bakes constants.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 32)
}

// FormatVec4 renders a vec4 literal for baking cross-sections and sizes
// into generated sources.
func FormatVec4(v mgl32.Vec4) string {
	return fmt.Sprintf("vec4(%s,%s,%s,%s)",
		FormatFloat(float64(v[0])), FormatFloat(float64(v[1])),
		FormatFloat(float64(v[2])), FormatFloat(float64(v[3])))
}

// ConstHeader generates the const.h.glsl body: the literal constants every
// kernel of the current run is compiled against.
func ConstHeader(atm *atmosphere.Atmosphere) string {
	var b strings.Builder
	fmt.Fprintf(&b, "const float earthRadius=%s; // must be in meters\n", FormatFloat(atm.EarthRadius))
	fmt.Fprintf(&b, "const float atmosphereHeight=%s; // must be in meters\n", FormatFloat(atm.Height))
	b.WriteString(`
const vec3 earthCenter=vec3(0,0,-earthRadius);

const float dobsonUnit = 2.687e20; // molecules/m^2
const float PI=3.1415926535897932;
const float km=1000;
#define sqr(x) ((x)*(x))

`)
	fmt.Fprintf(&b, "const float sunAngularRadius=%s;\n", FormatFloat(atm.SunAngularRadius))
	fmt.Fprintf(&b, "const vec4 scatteringTextureSize=vec4(%d,%d,%d,%d);\n",
		atm.ScatteringTextureSize[0], atm.ScatteringTextureSize[1],
		atm.ScatteringTextureSize[2], atm.ScatteringTextureSize[3])
	fmt.Fprintf(&b, "const vec2 irradianceTextureSize=vec2(%d,%d);\n",
		atm.IrradianceTexSize[0], atm.IrradianceTexSize[1])
	fmt.Fprintf(&b, "const vec2 transmittanceTextureSize=vec2(%d,%d);\n",
		atm.TransmittanceTexSize[0], atm.TransmittanceTexSize[1])
	fmt.Fprintf(&b, "const int radialIntegrationPoints=%d;\n", atm.RadialIntegrationPoints)
	fmt.Fprintf(&b, "const int numTransmittanceIntegrationPoints=%d;\n", atm.TransmittanceIntegrationPoints)
	return b.String()
}

// DensitiesHeader generates the densities.h.glsl body: forward declarations
// of every per-species number density plus the two per-pass hooks bound by
// the single-scattering specialization.
func DensitiesHeader(atm *atmosphere.Atmosphere) string {
	var b strings.Builder
	for _, s := range atm.Scatterers {
		fmt.Fprintf(&b, "float scattererNumberDensity_%s(float altitude);\n", s.Name)
	}
	for _, a := range atm.Absorbers {
		fmt.Fprintf(&b, "float absorberNumberDensity_%s(float altitude);\n", a.Name)
	}
	b.WriteString("vec4 scatteringCrossSection();\n")
	b.WriteString("float scattererDensity(float altitude);\n")
	return b.String()
}

func densityFunctions(atm *atmosphere.Atmosphere) string {
	var b strings.Builder
	for _, s := range atm.Scatterers {
		fmt.Fprintf(&b, "float scattererNumberDensity_%s(float altitude)\n{\n%s\n}\n", s.Name, s.NumberDensity)
	}
	for _, a := range atm.Absorbers {
		fmt.Fprintf(&b, "float absorberNumberDensity_%s(float altitude)\n{\n%s\n}\n", a.Name, a.NumberDensity)
	}
	return b.String()
}

// DensityFunctions generates densities.frag: definitions of every species
// number density. The scattererDensity/scatteringCrossSection hooks stay
// undefined here; they are only linked into programs that bind them via
// SingleScatteringDensities.
func DensityFunctions(atm *atmosphere.Atmosphere) string {
	return versionHead + "\n#include \"const.h.glsl\"\n\n" + densityFunctions(atm)
}

// SingleScatteringDensities generates the densities.frag variant for the
// single-scattering pass of one scatterer: all density definitions plus the
// scattererDensity and scatteringCrossSection hooks specialized to it, with
// the cross-section baked in as a literal.
func SingleScatteringDensities(atm *atmosphere.Atmosphere, scattererIndex, setIndex int) string {
	s := atm.Scatterers[scattererIndex]
	cross := s.CrossSection.At(setIndex, atm.Wavelengths[setIndex])
	return DensityFunctions(atm) +
		fmt.Sprintf("float scattererDensity(float altitude) { return scattererNumberDensity_%s(altitude); }\n", s.Name) +
		fmt.Sprintf("vec4 scatteringCrossSection() { return %s; }\n", FormatVec4(cross))
}

const opticalDepthFunctionTemplate = `
vec4 opticalDepthToAtmosphereBorder_##agentSpecies(float altitude, float cosZenithAngle, vec4 crossSection)
{
    float integrInterval=distanceToAtmosphereBorder(cosZenithAngle, altitude);

    float r1=earthRadius+altitude;
    float l=integrInterval;
    float mu=cosZenithAngle;
    /* From law of cosines: r2^2=r1^2+l^2+2 r1 l mu */
    float endAltitude=-earthRadius+sqrt(sqr(r1)+sqr(l)+2*r1*l*mu);

    float dl=integrInterval/(numTransmittanceIntegrationPoints-1);

    /* Trapezoid rule on a uniform grid: f0/2+f1+f2+...+f(N-2)+f(N-1)/2. */
    float sum=(agent##NumberDensity_##agentSpecies(altitude)+
               agent##NumberDensity_##agentSpecies(endAltitude))/2;
    for(int n=1;n<numTransmittanceIntegrationPoints-1;++n)
    {
        float dist=n*dl;
        float currAlt=-earthRadius+sqrt(sqr(r1)+sqr(dist)+2*r1*dist*mu);
        sum+=agent##NumberDensity_##agentSpecies(currAlt);
    }
    return sum*dl*crossSection;
}
`

func expandOpticalDepthTemplate(kind, species string) string {
	src := strings.ReplaceAll(opticalDepthFunctionTemplate, "##agentSpecies", species)
	return strings.ReplaceAll(src, "agent##", kind)
}

// TransmittanceFunctions generates transmittance-functions.frag for one
// wavelength set: the density definitions, a trapezoid optical-depth
// function per species, and computeTransmittanceToAtmosphereBorder summing
// the per-species depths with their cross-sections baked in as literal
// vec4 constants.
func TransmittanceFunctions(atm *atmosphere.Atmosphere, setIndex int) string {
	wavelengths := atm.Wavelengths[setIndex]

	var b strings.Builder
	b.WriteString(versionHead)
	b.WriteString("\n#include \"const.h.glsl\"\n#include \"common-functions.h.glsl\"\n\n")
	b.WriteString(densityFunctions(atm))

	var compute strings.Builder
	compute.WriteString(`
// This assumes that ray doesn't intersect Earth
vec4 computeTransmittanceToAtmosphereBorder(float cosZenithAngle, float altitude)
{
    vec4 depth=vec4(0)
`)
	for _, s := range atm.Scatterers {
		b.WriteString(expandOpticalDepthTemplate("scatterer", s.Name))
		fmt.Fprintf(&compute, "        +opticalDepthToAtmosphereBorder_%s(altitude,cosZenithAngle,%s)\n",
			s.Name, FormatVec4(s.CrossSection.At(setIndex, wavelengths)))
	}
	for _, a := range atm.Absorbers {
		b.WriteString(expandOpticalDepthTemplate("absorber", a.Name))
		fmt.Fprintf(&compute, "        +opticalDepthToAtmosphereBorder_%s(altitude,cosZenithAngle,%s)\n",
			a.Name, FormatVec4(a.CrossSection.At(setIndex, wavelengths)))
	}
	compute.WriteString(`      ;
    return exp(-depth);
}
`)
	b.WriteString(compute.String())
	return b.String()
}

func phaseFunctionBodies(atm *atmosphere.Atmosphere) string {
	var b strings.Builder
	b.WriteString(versionHead)
	b.WriteString("\n#include \"const.h.glsl\"\n\n")
	for _, s := range atm.Scatterers {
		fmt.Fprintf(&b, "vec4 phaseFunction_%s(float dotViewSun)\n{\n%s\n}\n", s.Name, strings.TrimSpace(s.PhaseFunction))
	}
	return b.String()
}

// PhaseFunctions generates phase-functions.frag with one phaseFunction_<name>
// definition per scatterer and no currentPhaseFunction binding.
func PhaseFunctions(atm *atmosphere.Atmosphere) string {
	return phaseFunctionBodies(atm)
}

// PhaseFunctionsWithCurrent additionally binds currentPhaseFunction to the
// named scatterer for the passes specialized to one species.
func PhaseFunctionsWithCurrent(atm *atmosphere.Atmosphere, name string) string {
	return phaseFunctionBodies(atm) +
		fmt.Sprintf("vec4 currentPhaseFunction(float dotViewSun) { return phaseFunction_%s(dotViewSun); }\n", name)
}

// PhaseFunctionsGroundOnly binds currentPhaseFunction to a stub returning a
// very large sentinel. Radiation from the ground is unscattered at the point
// of reflection, so the function is statically unreachable; the stub only
// exists to let the program link.
func PhaseFunctionsGroundOnly(atm *atmosphere.Atmosphere) string {
	return phaseFunctionBodies(atm) +
		"vec4 currentPhaseFunction(float dotViewSun) { return vec4(3.4028235e38); }\n"
}

// TotalScatteringCoefficient generates total-scattering-coefficient.frag for
// one wavelength set: sum over scatterers of density times cross-section,
// plus the phase-weighted variant the scattering-density kernel integrates.
func TotalScatteringCoefficient(atm *atmosphere.Atmosphere, setIndex int) string {
	var b strings.Builder
	b.WriteString(versionHead)
	b.WriteString("\n#include \"const.h.glsl\"\n#include \"densities.h.glsl\"\n\n")
	for _, s := range atm.Scatterers {
		fmt.Fprintf(&b, "vec4 phaseFunction_%s(float dotViewSun);\n", s.Name)
	}
	b.WriteString("\nvec4 totalScatteringCoefficient(float altitude)\n{\n    return vec4(0)\n")
	for _, s := range atm.Scatterers {
		fmt.Fprintf(&b, "          +scattererNumberDensity_%s(altitude)*%s\n",
			s.Name, FormatVec4(s.CrossSection.At(setIndex, atm.Wavelengths[setIndex])))
	}
	b.WriteString("          ;\n}\n")
	b.WriteString("\nvec4 totalScatteringCoefficientTimesPhase(float altitude, float dotViewSun)\n{\n    return vec4(0)\n")
	for _, s := range atm.Scatterers {
		fmt.Fprintf(&b, "          +scattererNumberDensity_%s(altitude)*%s*phaseFunction_%s(dotViewSun)\n",
			s.Name, FormatVec4(s.CrossSection.At(setIndex, atm.Wavelengths[setIndex])), s.Name)
	}
	b.WriteString("          ;\n}\n")
	return b.String()
}

var (
	scatteringOrderRegexp = regexp.MustCompile(`\bSCATTERING_ORDER\b`)
	groundOnlyRegexp      = regexp.MustCompile(`\bRADIATION_IS_FROM_GROUND_ONLY\b`)
)

// SpecializeScatteringOrder bakes the scattering order into a source in
// place of the SCATTERING_ORDER token. The compiled kernel sees a constant,
// so order-dependent branches are eliminated statically and the token never
// shows up in the active uniform list.
func SpecializeScatteringOrder(src string, order int) string {
	return scatteringOrderRegexp.ReplaceAllString(src, strconv.Itoa(order))
}

// SpecializeGroundOnly bakes the ground-only flag in place of the
// RADIATION_IS_FROM_GROUND_ONLY token.
func SpecializeGroundOnly(src string, groundOnly bool) string {
	return groundOnlyRegexp.ReplaceAllString(src, strconv.FormatBool(groundOnly))
}
