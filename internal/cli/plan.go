// internal/cli/plan.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan [formula]",
	Short: "Print the build plan without building",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlan,
}

func init() {
	addOptionFlags(planCmd)
	planCmd.Flags().StringVarP(&planFormat, "format", "o", "yaml", "output format (yaml, json)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	m, err := newManager(nil)
	if err != nil {
		return err
	}

	p, err := m.Plan(cmd.Context(), formulaArg(args), optionFlags(cmd))
	if err != nil {
		return err
	}
	printWarnings(p.Warnings)

	switch planFormat {
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding plan: %w", err)
		}
		return enc.Close()
	case "json":
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding plan: %w", err)
		}
		fmt.Println(string(data))
		return nil
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", planFormat)
	}
}
