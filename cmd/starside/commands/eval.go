package commands

import (
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval EXPR",
	Short: "Evaluate an expression and print the result",
	Example: `  starside eval '[x*x for x in range(5)]'
  starside eval -m os 'os.getcwd()' -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		v, err := s.b.Evaluate(args[0])
		if err != nil {
			return err
		}
		defer v.Release()
		return output(v)
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
