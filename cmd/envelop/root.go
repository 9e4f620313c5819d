package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vektah/gqlparser/v2/ast"
	"gopkg.in/yaml.v3"

	config "github.com/hanpama/envelop/internal/config"
	schema "github.com/hanpama/envelop/internal/schema"
)

// cli carries the state shared by the commands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCommand() *cobra.Command {
	c := &cli{v: config.New()}
	root := &cobra.Command{
		Use:           "envelop",
		Short:         "GraphQL server and tools built on a plugin envelop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().StringSlice("schema", nil, "GraphQL SDL file; repeatable")
	c.bind(root.PersistentFlags(), "graphql.schema", "schema")

	root.AddCommand(
		newServeCommand(c),
		newValidateCommand(c),
		newPrintSchemaCommand(c),
	)
	return root
}

// bind makes flag name override the config key.
func (c *cli) bind(fs *pflag.FlagSet, key, name string) {
	if err := c.v.BindPFlag(key, fs.Lookup(name)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}

func (c *cli) config() (*config.Config, error) {
	return config.Load(c.v, c.cfgFile)
}

// loadSchema merges the SDL files into one schema.
func loadSchema(paths []string) (*schema.Schema, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no schema files given (--schema or graphql.schema)")
	}
	sources := make([]*ast.Source, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		sources = append(sources, &ast.Source{Name: path, Input: string(data)})
	}
	sch, err := schema.BuildFromSources(sources...)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

// loadRootValue reads a YAML or JSON document used as the root value of
// every operation. An empty path yields nil.
func loadRootValue(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read root value: %w", err)
	}
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode root value %s: %w", path, err)
	}
	return root, nil
}
