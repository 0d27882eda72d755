// internal/cli/config.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arc-language/pgformula/pkg/core"
)

var saveConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration after defaults, the config file and global
flags are applied. With --save it is written back to the config file.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&saveConfig, "save", false, "write the effective configuration to the config file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(config); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if !saveConfig {
		return nil
	}
	if err := core.SaveConfig(config, cfgFile); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	path := cfgFile
	if path == "" {
		path, _ = core.DefaultPath()
	}
	fmt.Fprintf(os.Stderr, "✓ Saved %s\n", path)
	return nil
}
