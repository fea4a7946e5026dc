package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chazu/siphon/pkg/library"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types [type...]",
		Short: "List PCell types and their parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := library.NewRegistry()
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 {
				names = reg.Types()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range names {
				def, ok := reg.Lookup(name)
				if !ok {
					return fmt.Errorf("types: unknown type %q", name)
				}
				chain, err := reg.Chain(name)
				if err != nil {
					return err
				}
				params, err := reg.Table(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", strings.Join(chain, " > "), def.Description)
				for _, p := range params {
					val := "-"
					switch {
					case p.Default != nil:
						val = fmt.Sprint(p.Default)
					case p.TechLayer != "":
						val = p.TechLayer
					}
					if p.Unit != "" {
						val += " " + p.Unit
					}
					fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", p.Name, p.Type, val, p.Description)
				}
			}
			return w.Flush()
		},
	}
}
