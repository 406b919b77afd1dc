package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/starside/pkg/cli"
	"github.com/haivivi/starside/pkg/value"
)

var callArgsFile string

var callCmd = &cobra.Command{
	Use:   "call NAME [ARGS]",
	Short: "Call a script function with a JSON argument list",
	Long: `Call a function bound in the shared namespace, or reachable through a
dotted name such as os.path.join. ARGS is a JSON list; malformed JSON
(single quotes, trailing commas) is repaired. Use --args-file to read the
list from a JSON or YAML file, or "-" for stdin.`,
	Example: `  starside call len '["abc"]'
  starside call -m os os.path.join '["a", "b"]'
  starside call -s app.star greet --args-file args.yaml`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		callArgs, err := parseCallArgs(args[1:], callArgsFile)
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		v, err := s.b.CallSync(value.Str(args[0]), callArgs)
		if err != nil {
			return err
		}
		defer v.Release()
		return output(v)
	},
}

func parseCallArgs(inline []string, file string) (value.Value, error) {
	switch {
	case file != "":
		return cli.LoadArgs(file)
	case len(inline) > 0:
		return cli.ParseArgs([]byte(inline[0]), "")
	}
	return value.List(), nil
}

func init() {
	callCmd.Flags().StringVar(&callArgsFile, "args-file", "", "read the argument list from a file")
	rootCmd.AddCommand(callCmd)
}
