// Package cli provides the pieces shared by the starside command line:
//
//   - Configuration (YAML, under os.UserConfigDir()/starside/)
//   - Output formatting of converted script values (repr, JSON, YAML, raw)
//   - Call argument parsing with JSON repair
//   - Styled script tracebacks
//
// Example usage:
//
//	cfg, err := cli.LoadConfig()
//
//	v, err := in.Evaluate(expr)
//	if err != nil {
//	    fmt.Fprintln(os.Stderr, cli.RenderError(err))
//	}
//	cli.Output(v, cli.OutputOptions{Format: cli.FormatJSON})
package cli
