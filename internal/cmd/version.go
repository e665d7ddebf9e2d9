package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/candidash/internal/ux"
	"github.com/felixgeelhaar/candidash/internal/version"
)

func newVersionCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			noColor, _ := cmd.Flags().GetBool("no-color")
			printer, err := ux.NewPrinter(format, ux.PrinterOptions{Writer: cmd.OutOrStdout(), NoColor: noColor})
			if err != nil {
				return err
			}

			info := version.GetInfo()
			return printer.Emit(info, func(w io.Writer, s ux.Styles) error {
				if verbose {
					_, err := fmt.Fprintln(w, info.String())
					return err
				}
				_, err := fmt.Fprintf(w, "candidash %s\n", info.Version)
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed version information")
	return cmd
}
