package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var execSource string

var execCmd = &cobra.Command{
	Use:   "exec [FILE]",
	Short: "Execute a script file or inline source",
	Example: `  starside exec app.star
  starside exec -c 'print("hello")'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (execSource == "") == (len(args) == 0) {
			return fmt.Errorf("exactly one of FILE or --code is required")
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if execSource != "" {
			return s.b.Exec(execSource)
		}
		return s.in.ExecFile(args[0])
	},
}

func init() {
	execCmd.Flags().StringVarP(&execSource, "code", "c", "", "source to execute")
	rootCmd.AddCommand(execCmd)
}
