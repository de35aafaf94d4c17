package config

import (
	"fmt"
	"strings"

	"github.com/clinrad/planopt/internal/plansys"
)

// PatientSpec identifies the patient record the session operates on.
type PatientSpec struct {
	ID       string `yaml:"id" mapstructure:"id"`
	LastName string `yaml:"lastName" mapstructure:"lastName"`
}

// Validate returns an error when the patient cannot be identified.
func (p *PatientSpec) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("patient id cannot be empty")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("patient last name cannot be empty")
	}
	return nil
}

// CaseSpec selects the case, plan, and beamset for the session and describes
// the treatment geometry. More than one beamset means the plan co-optimizes
// them under a single optimization.
type CaseSpec struct {
	Name       string          `yaml:"name" mapstructure:"name"`
	Plan       string          `yaml:"plan" mapstructure:"plan"`
	Beamset    string          `yaml:"beamset,omitempty" mapstructure:"beamset"`
	Beamsets   []BeamsetSpec   `yaml:"beamsets" mapstructure:"beamsets"`
	Objectives []ObjectiveSpec `yaml:"objectives,omitempty" mapstructure:"objectives"`
}

// BeamsetSpec describes one beamset. DeliveryTime is the per-beam delivery
// time budget in seconds and applies to helical technique only.
type BeamsetSpec struct {
	Label        string     `yaml:"label" mapstructure:"label"`
	Technique    string     `yaml:"technique" mapstructure:"technique"`
	Machine      string     `yaml:"machine,omitempty" mapstructure:"machine"`
	Beams        []BeamSpec `yaml:"beams" mapstructure:"beams"`
	DeliveryTime float64    `yaml:"deliveryTime,omitempty" mapstructure:"deliveryTime"`
}

// BeamSpec describes one beam. Nonzero MU marks the beam as already
// optimized, which blocks constraint retrofits.
type BeamSpec struct {
	Name string  `yaml:"name" mapstructure:"name"`
	MU   float64 `yaml:"mu,omitempty" mapstructure:"mu"`
}

// ObjectiveSpec describes one objective constituent. ForBeamset marks the
// term as beamset-specific, which happens under co-optimization.
type ObjectiveSpec struct {
	Roi          string `yaml:"roi" mapstructure:"roi"`
	OrganType    string `yaml:"organType,omitempty" mapstructure:"organType"`
	FunctionType string `yaml:"functionType,omitempty" mapstructure:"functionType"`
	ForBeamset   string `yaml:"forBeamset,omitempty" mapstructure:"forBeamset"`
}

// CanonicalTechnique returns the canonical identifier for a delivery
// technique.
func CanonicalTechnique(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "tomohelical", "tomo", "helical":
		return string(plansys.TechniqueTomoHelical)
	case "smlc", "static":
		return string(plansys.TechniqueSMLC)
	case "dynamicarc", "vmat", "arc":
		return string(plansys.TechniqueDynamicArc)
	default:
		return strings.TrimSpace(value)
	}
}

// Normalize ensures canonical values are applied before validation.
func (c *CaseSpec) Normalize() {
	if c == nil {
		return
	}
	for i := range c.Beamsets {
		c.Beamsets[i].Technique = CanonicalTechnique(c.Beamsets[i].Technique)
		c.Beamsets[i].Machine = strings.TrimSpace(c.Beamsets[i].Machine)
	}
	if c.Beamset == "" && len(c.Beamsets) == 1 {
		c.Beamset = c.Beamsets[0].Label
	}
}

// Validate returns an error when the case selection is unusable.
func (c *CaseSpec) Validate() error {
	c.Normalize()

	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("case name cannot be empty")
	}
	if strings.TrimSpace(c.Plan) == "" {
		return fmt.Errorf("plan name cannot be empty")
	}
	if len(c.Beamsets) == 0 {
		return fmt.Errorf("case requires at least one beamset")
	}

	found := false
	for i, bs := range c.Beamsets {
		if strings.TrimSpace(bs.Label) == "" {
			return fmt.Errorf("beamset %d label cannot be empty", i+1)
		}
		switch plansys.Technique(bs.Technique) {
		case plansys.TechniqueTomoHelical, plansys.TechniqueSMLC, plansys.TechniqueDynamicArc:
			// supported techniques
		default:
			return fmt.Errorf("beamset %q technique %q is not supported", bs.Label, bs.Technique)
		}
		if len(bs.Beams) == 0 {
			return fmt.Errorf("beamset %q requires at least one beam", bs.Label)
		}
		for j, beam := range bs.Beams {
			if strings.TrimSpace(beam.Name) == "" {
				return fmt.Errorf("beamset %q beam %d name cannot be empty", bs.Label, j+1)
			}
		}
		if bs.Label == c.Beamset {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("selected beamset %q is not defined in the case", c.Beamset)
	}

	for i, obj := range c.Objectives {
		if strings.TrimSpace(obj.Roi) == "" {
			return fmt.Errorf("objective %d roi cannot be empty", i+1)
		}
	}

	return nil
}

// Selected returns the beamset spec the session targets.
func (c *CaseSpec) Selected() *BeamsetSpec {
	for i := range c.Beamsets {
		if c.Beamsets[i].Label == c.Beamset {
			return &c.Beamsets[i]
		}
	}
	return nil
}
