package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/haivivi/starside/pkg/cli"
	"github.com/haivivi/starside/pkg/value"
)

var (
	runCall     string
	runCallArgs string
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Run a script and print the events it sends",
	Long: `Execute FILE, then optionally call a function on the bridge worker.
Events sent with starside.send() are printed as they are delivered, one per
line, as [name, args...]. Errors raised by asynchronous calls are printed to
stderr. The command ends when the call completes or on interrupt.`,
	Example: `  starside run app.star
  starside run app.star --call main --args '[3]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		callArgs, err := parseCallArgs(nonEmpty(runCallArgs), "")
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		var failed int
		s.b.OnError(func(msg string) {
			failed++
			fmt.Fprintln(os.Stderr, cli.RenderError(errors.New(msg)))
		})
		s.b.OnReceived(func(data value.Value) {
			if err := output(data); err != nil {
				logger.Warn("run: print event", "error", err)
			}
		})

		if err := s.in.ExecFile(args[0]); err != nil {
			return err
		}
		if runCall == "" {
			s.b.Poll()
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, done := context.WithCancel(ctx)
		defer done()
		err = s.b.Call(value.Str(runCall), callArgs, func(res value.Value) error {
			defer done()
			if res.IsNone() {
				return nil
			}
			return output(res)
		})
		if err != nil {
			return err
		}
		s.b.Run(ctx)
		// Deliver what arrived before an interrupt.
		s.b.Poll()
		if failed > 0 {
			return fmt.Errorf("%s failed", runCall)
		}
		return nil
	},
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func init() {
	runCmd.Flags().StringVar(&runCall, "call", "", "function to call after the script has run")
	runCmd.Flags().StringVar(&runCallArgs, "args", "", "JSON argument list for --call")
	rootCmd.AddCommand(runCmd)
}
