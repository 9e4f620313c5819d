package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2/gqlerror"

	envelop "github.com/hanpama/envelop/internal/envelop"
	language "github.com/hanpama/envelop/internal/language"
	"github.com/hanpama/envelop/internal/plugins"
	"github.com/hanpama/envelop/internal/validation"
)

func newValidateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <query-file>...",
		Short: "Parse and validate operation documents against the schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			sch, err := loadSchema(cfg.GraphQL.Schema)
			if err != nil {
				return err
			}
			env := envelop.New(envelop.Options{Plugins: []envelop.Plugin{
				plugins.UseSchema(sch),
				envelop.EnableIf(!cfg.GraphQL.Introspection, plugins.UseDisableIntrospection()),
			}})

			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read document: %w", err)
				}
				e := env.GetEnveloped(nil)
				doc, err := e.Parse(string(data), language.ParseOptions{})
				if err != nil {
					fmt.Fprintf(out, "%s: %s\n", path, errorLine(err))
					invalid++
					continue
				}
				errs := e.Validate(e.Schema, doc, nil, validation.Options{})
				for _, ve := range errs {
					fmt.Fprintf(out, "%s: %s\n", path, errorLine(ve))
				}
				if len(errs) > 0 {
					invalid++
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d documents are invalid", invalid, len(args))
			}
			fmt.Fprintf(out, "%d documents are valid\n", len(args))
			return nil
		},
	}
}

// errorLine renders err as "line:column: message" when it carries a location.
func errorLine(err error) string {
	var gqlErr *gqlerror.Error
	if !errors.As(err, &gqlErr) {
		return err.Error()
	}
	if len(gqlErr.Locations) == 0 {
		return gqlErr.Message
	}
	loc := gqlErr.Locations[0]
	return fmt.Sprintf("%d:%d: %s", loc.Line, loc.Column, gqlErr.Message)
}
