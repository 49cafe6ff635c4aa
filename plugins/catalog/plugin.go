// Package catalog bundles the standard dataset modules in their dispatch order.
package catalog

import (
	"sitereport/pkg/datasetapi"
	"sitereport/plugins/abundance"
	"sitereport/plugins/adna"
	"sitereport/plugins/ceramic"
	"sitereport/plugins/dating"
	"sitereport/plugins/dendro"
	"sitereport/plugins/generic"
	"sitereport/plugins/isotope"
	"sitereport/plugins/measured"
)

// Plugin registers the standard modules followed by the catch-all.
type Plugin struct{}

// New constructs the catalog plugin.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "catalog" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "1.0.0" }

// Modules returns fresh instances of the specific modules in dispatch order.
// Narrow method claims precede the group claims that would otherwise swallow
// them.
func Modules() []datasetapi.Module {
	return []datasetapi.Module{
		abundance.New(),
		dendro.New(),
		ceramic.New(),
		isotope.New(),
		adna.New(),
		dating.NewC14(),
		dating.NewESR(),
		dating.NewRadiometric(),
		dating.NewEntityAges(),
		dating.NewPeriod(),
		measured.NewSusceptibility(),
		measured.NewLOI(),
		measured.NewMeasuredValue(),
	}
}

// Register installs the standard modules and the generic catch-all.
func (Plugin) Register(r datasetapi.Registrar) error {
	for _, m := range Modules() {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return r.RegisterCatchAll(generic.New())
}
