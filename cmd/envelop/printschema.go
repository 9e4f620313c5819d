package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	schema "github.com/hanpama/envelop/internal/schema"
)

func newPrintSchemaCommand(c *cli) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "print-schema",
		Short: "Merge and validate the schema files and print the result as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			sch, err := loadSchema(cfg.GraphQL.Schema)
			if err != nil {
				return err
			}
			sdl := schema.Render(sch)
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), sdl)
				return err
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the SDL to this file instead of stdout")
	return cmd
}
