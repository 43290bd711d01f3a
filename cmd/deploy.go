package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/meteoswiss/claw-release-tools/pkg"
	"github.com/meteoswiss/claw-release-tools/pkg/config"
	"github.com/meteoswiss/claw-release-tools/pkg/deploy"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Installs the release selected by the CI environment",
	Long: `Reads the release, compiler and slave environment variables (and the optional
disable_tests), builds the matching release from the deployment matrix into a
directory the release link does not point at and then repoints the link.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		req, err := deploy.RequestFromEnv(nil)
		if err != nil {
			return err
		}

		matrix, err := loadMatrix(cmd)
		if err != nil {
			return err
		}

		modulesCmd, err := cmd.Flags().GetString("modules-cmd")
		if err != nil {
			return err
		}

		deployer := deploy.Deployer{
			Matrix: matrix,
			Install: func(ctx context.Context, cfg config.BuildConfig) error {
				cfg.ModulesCmd = modulesCmd
				return runInstall(ctx, cfg)
			},
		}

		result, err := deployer.Deploy(ctx, req)
		if err != nil {
			return err
		}

		pkg.PrintTask(result.Target.Link + " now points to " + result.InstallDir)
		if result.Retained != "" {
			pkg.PrintSubtask("previous installation kept in " + result.Retained)
		}
		return nil
	},
}

func loadMatrix(cmd *cobra.Command) (*deploy.Matrix, error) {
	path, err := cmd.Flags().GetString("matrix")
	if err != nil {
		return nil, err
	}

	if path == "" {
		return deploy.DefaultMatrix()
	}
	return deploy.LoadMatrix(path)
}

func init() {
	deployCmd.Flags().String("matrix", "", "deployment matrix file (defaults to the built-in matrix)")
	deployCmd.Flags().String("modules-cmd", config.DefaultModulesCmd(), "command implementing the module shell function")

	rootCmd.AddCommand(deployCmd)
}
