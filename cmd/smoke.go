package cmd

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/meteoswiss/claw-release-tools/pkg"
	"github.com/meteoswiss/claw-release-tools/pkg/config"
	"github.com/meteoswiss/claw-release-tools/pkg/installer"
	"github.com/meteoswiss/claw-release-tools/pkg/shell"
)

var smokeCmd = &cobra.Command{
	Use:   "smoke-check <install-dir>",
	Short: "Checks that an existing installation can translate a trivial module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		installDir, err := filepath.Abs(args[0])
		if err != nil {
			return eris.Wrap(err, "Failed to resolve install dir")
		}

		flags := cmd.Flags()
		modules, err := flags.GetStringSlice("modules")
		if err != nil {
			return err
		}

		modulesCmd, err := flags.GetString("modules-cmd")
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		err = installer.SmokeCheck(ctx, shell.NewInterpRunner(modulesCmd), installDir, splitModules(modules), "")
		if err != nil {
			pkg.PrintError(installDir + " failed the smoke check")
			return err
		}

		pkg.PrintTask(installDir + " passed the smoke check")
		return nil
	},
}

func init() {
	smokeCmd.Flags().StringSlice("modules", nil, "environment modules to load before running clawfc")
	smokeCmd.Flags().String("modules-cmd", config.DefaultModulesCmd(), "command implementing the module shell function")

	rootCmd.AddCommand(smokeCmd)
}
