// internal/cli/caveats.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var caveatsCmd = &cobra.Command{
	Use:   "caveats [formula]",
	Short: "Print post-install guidance",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager(nil)
		if err != nil {
			return err
		}

		p, err := m.Plan(cmd.Context(), formulaArg(args), optionFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Print(p.Guidance)
		return nil
	},
}

func init() {
	addOptionFlags(caveatsCmd)
}
