package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sitereport/pkg/datasetapi"
)

func newModulesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the analysis modules in dispatch order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := newRegistry()
			if err != nil {
				return err
			}
			descriptors := registry.Descriptors()
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(descriptors)
			}
			return writeModuleTable(a, descriptors)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print descriptors as JSON")
	return cmd
}

func writeModuleTable(a *app, descriptors []datasetapi.ModuleDescriptor) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ORDER\tMODULE\tCLAIMS")
	for i, d := range descriptors {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, d.Name, describeFilter(d))
	}
	return tw.Flush()
}

func describeFilter(d datasetapi.ModuleDescriptor) string {
	if d.CatchAll || d.Filter.All {
		return "everything left"
	}
	var parts []string
	if len(d.Filter.MethodIDs) > 0 {
		parts = append(parts, "methods "+joinInts(d.Filter.MethodIDs))
	}
	if len(d.Filter.MethodGroupIDs) > 0 {
		parts = append(parts, "method groups "+joinInts(d.Filter.MethodGroupIDs))
	}
	return strings.Join(parts, "; ")
}

func joinInts(ids []int) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprint(id)
	}
	return strings.Join(out, ",")
}
