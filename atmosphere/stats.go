package atmosphere

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
)

// Stats builds a tabular summary of the description: species, cross-section
// models and the wavelength schedule. Printed before a run so misdeclared
// species are caught by eye before the GPU work starts.
func (atm *Atmosphere) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Kind", "Name", "Cross-section"})
	for _, s := range atm.Scatterers {
		table.Append([]string{"Scatterer", s.Name, crossSectionSummary(s.CrossSection)})
	}
	for _, a := range atm.Absorbers {
		table.Append([]string{"Absorber", a.Name, crossSectionSummary(a.CrossSection)})
	}
	table.Render()

	fmt.Fprintf(&buf, "%d wavelength sets (%g..%g nm), %d scattering orders\n",
		len(atm.Wavelengths),
		atm.Wavelengths[0][0], atm.Wavelengths[len(atm.Wavelengths)-1][3],
		atm.ScatteringOrders)
	return buf.String()
}

func crossSectionSummary(c CrossSection) string {
	if len(c.PerSet) > 0 {
		return fmt.Sprintf("tabulated, %d sets", len(c.PerSet))
	}
	return fmt.Sprintf("%g m^2 at %g nm, exponent %g", c.Reference, c.ReferenceWavelength, c.Exponent)
}
