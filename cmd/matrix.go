package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Lists the supported release, compiler and machine combinations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		matrix, err := loadMatrix(cmd)
		if err != nil {
			return err
		}

		targets := matrix.Targets()
		width := 0
		for _, t := range targets {
			name := t.Machine + "/" + t.Compiler + "/" + t.Release
			if len(name) > width {
				width = len(name)
			}
		}

		fmt.Println("Supported combinations:")
		lineFmt := fmt.Sprintf(" * %%-%ds %%s -> %%s\n", width+1)
		for _, t := range targets {
			fmt.Printf(lineFmt, t.Machine+"/"+t.Compiler+"/"+t.Release, t.Link, t.InstallDir)
		}

		return nil
	},
}

func init() {
	matrixCmd.Flags().String("matrix", "", "deployment matrix file (defaults to the built-in matrix)")

	rootCmd.AddCommand(matrixCmd)
}
