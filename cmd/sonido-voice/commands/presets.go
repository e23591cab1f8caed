package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var presetsJSON bool

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the goal presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog(globalConfig)
		if err != nil {
			return err
		}
		if presetsJSON {
			return writeResult(cat.Presets(), "")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tLABEL\tBREATHINESS\tRBI\tHNR MIN")
		for _, p := range cat.Presets() {
			def := ""
			if p.Name == globalConfig.Analysis.DefaultGoal {
				def = " *"
			}
			fmt.Fprintf(w, "%s%s\t%s\t%g-%g\t%g-%g\t%g\n", p.Name, def, p.Label,
				p.Breathiness.Min, p.Breathiness.Max, p.RBI.Min, p.RBI.Max, p.HNRMin)
		}
		return w.Flush()
	},
}

func init() {
	presetsCmd.Flags().BoolVar(&presetsJSON, "json", false, "output as JSON")
}
