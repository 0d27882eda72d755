// internal/cli/plist.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var plistWrite bool

var plistCmd = &cobra.Command{
	Use:   "plist [formula]",
	Short: "Print the launchd service descriptor",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlist,
}

func init() {
	addOptionFlags(plistCmd)
	plistCmd.Flags().BoolVar(&plistWrite, "write", false, "write the descriptor into the keg instead of printing it")
}

func runPlist(cmd *cobra.Command, args []string) error {
	m, err := newManager(nil)
	if err != nil {
		return err
	}

	p, err := m.Plan(cmd.Context(), formulaArg(args), optionFlags(cmd))
	if err != nil {
		return err
	}

	if !plistWrite {
		fmt.Print(p.Descriptor)
		return nil
	}
	if err := m.WriteDescriptor(p); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %s\n", p.Paths.ServicePlist())
	return nil
}
