// internal/cli/info.go
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [formula]",
	Short: "Show information about a formula",
	Long:  `Display the formula definition and the dependencies that apply to this host.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInfo,
}

func init() {
	addOptionFlags(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	m, err := newManager(nil)
	if err != nil {
		return err
	}

	f, err := m.Formula(formulaArg(args))
	if err != nil {
		return err
	}

	// Display info
	fmt.Printf("Formula: %s\n", f.Name)
	fmt.Printf("Version: %s\n", f.Version)
	if f.Homepage != "" {
		fmt.Printf("Homepage: %s\n", f.Homepage)
	}
	if len(f.Aliases) > 0 {
		fmt.Printf("Aliases: %s\n", strings.Join(f.Aliases, ", "))
	}
	fmt.Printf("URL: %s\n", f.URL)
	if len(f.Options) > 0 {
		fmt.Println("Options:")
		for _, o := range f.Options {
			fmt.Printf("  --%-12s %s\n", o.Flag, o.Description)
		}
	}

	facts, err := m.Facts(cmd.Context(), optionFlags(cmd))
	if err != nil {
		return err
	}
	fmt.Printf("Platform: %s\n", facts)
	if deps := f.DependenciesFor(facts); len(deps) > 0 {
		fmt.Printf("Dependencies: %s\n", strings.Join(deps, ", "))
	}
	fmt.Printf("Keg: %s\n", m.Paths(f).Prefix)

	return nil
}
