package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/haivivi/starside/cmd/starside/internal/build"
	"github.com/haivivi/starside/pkg/bridge"
	"github.com/haivivi/starside/pkg/interp"
	"github.com/haivivi/starside/pkg/value"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := interp.New(interp.WithLogger(logger))
		defer in.Shutdown()

		if outputFormat != "repr" {
			return output(value.Dict(map[string]value.Value{
				"version": value.Str(build.Version),
				"commit":  value.Str(build.Commit),
				"date":    value.Str(build.Date),
				"plugin":  value.Str(in.PluginVersion()),
				"runtime": value.Str(in.RuntimeVersion()),
				"api":     value.Str(bridge.Latest.String()),
			}))
		}
		fmt.Println(build.String())
		fmt.Printf("  plugin:  %s (api %s)\n", in.PluginVersion(), bridge.Latest)
		fmt.Printf("  runtime: %s\n", in.RuntimeVersion())
		if IsVerbose() {
			fmt.Printf("  go:      %s\n", runtime.Version())
			fmt.Printf("  config:  %s\n", globalConfig.Path())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
