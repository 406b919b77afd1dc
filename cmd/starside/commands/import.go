package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/starside/pkg/value"
)

var importCmd = &cobra.Command{
	Use:   "import MODULE [NAME...]",
	Short: "Import a module, or names from it, and list the bound globals",
	Example: `  starside import os.path
  starside import math sqrt pi`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if len(args) > 1 {
			if _, err := s.b.ImportNamesSync(args[0], args[1:]); err != nil {
				return err
			}
		} else if _, err := s.b.ImportModuleSync(args[0]); err != nil {
			return err
		}

		names := s.in.Globals()
		items := make([]value.Value, len(names))
		for n, name := range names {
			items[n] = value.Str(name)
		}
		return output(value.List(items...))
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
