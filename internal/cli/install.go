// internal/cli/install.go
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arc-language/pgformula"
)

var installDryRun bool

var installCmd = &cobra.Command{
	Use:   "install [formula]",
	Short: "Build and install a formula",
	Long: `Download, verify, configure and build the formula into its keg, then
write the launchd service descriptor.

Examples:
  pgformula install
  pgformula install postgresql --no-python
  pgformula install postgres --ossp-uuid --prefix=/opt/homebrew`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstall,
}

func init() {
	addOptionFlags(installCmd)
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "log build commands without running them")
}

func runInstall(cmd *cobra.Command, args []string) error {
	m, err := newManager(&pgformula.Options{DryRun: installDryRun})
	if err != nil {
		return err
	}

	name := formulaArg(args)
	fmt.Printf("Installing %s...\n", name)

	p, err := m.Install(cmd.Context(), name, optionFlags(cmd))
	if p != nil {
		printWarnings(p.Warnings)
	}
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("✓ Successfully installed %s %s\n", p.Formula, p.Version)
	fmt.Println()
	fmt.Print(p.Guidance)
	return nil
}
