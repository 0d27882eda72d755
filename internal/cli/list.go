// internal/cli/list.go
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available formulae",
	Long:  `List the built-in formulae and any overrides from the configured formula directory.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	m, err := newManager(nil)
	if err != nil {
		return err
	}

	all, err := m.Formulae()
	if err != nil {
		return err
	}

	fmt.Printf("Available formulae:\n")
	for _, f := range all {
		line := fmt.Sprintf("  %-12s %s", f.Name, f.Version)
		if len(f.Aliases) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(f.Aliases, ", "))
		}
		fmt.Println(line)
	}

	if config.FormulaDir != "" {
		fmt.Printf("\nOverrides: %s\n", config.FormulaDir)
	}

	return nil
}
