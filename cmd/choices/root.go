package main

import (
	"fmt"
	"os"

	choices "github.com/goliatone/go-choices"
	"github.com/goliatone/go-choices/internal/hydrate"
	"github.com/goliatone/go-choices/pkg/zaplog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalFlags struct {
	verbose bool
	filter  string
	engine  string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "choices",
		Short: "Normalize option lists and resolve selections",
		Long: `choices reads option sources from JSON or YAML files and prints their
canonical records.

Sequences, key to label mappings and record lists are accepted. Record values
that are not strings are replaced with "__mask_<n>" tokens; select maps those
tokens back to the values they stand for.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log normalization and rule evaluation to stderr")
	root.PersistentFlags().StringVar(&flags.filter, "filter", "", "rule records must satisfy to be kept")
	root.PersistentFlags().StringVar(&flags.engine, "engine", "expr", "rule engine: expr, cel, js")

	root.AddCommand(newNormalizeCommand(flags))
	root.AddCommand(newSelectCommand(flags))
	root.AddCommand(newWatchCommand(flags))
	return root
}

// normalizer builds the Normalizer shared by every subcommand.
func (f *globalFlags) normalizer() (*choices.Normalizer, func(), error) {
	log := zap.NewNop()
	if f.verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			return nil, nil, fmt.Errorf("create logger: %w", err)
		}
	}
	opts := []choices.Option{choices.WithLogger(zaplog.New(log))}
	if f.filter != "" {
		evaluator, err := choices.EngineEvaluator(f.engine, choices.NewMemoryProgramCache(), choices.BuiltinFunctions())
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, choices.WithEvaluator(evaluator), choices.WithFilterRule(f.filter))
	}
	return choices.New(opts...), func() { _ = log.Sync() }, nil
}

func readSource(path string) (any, error) {
	format, err := hydrate.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return hydrate.NewDecoder().Decode(hydrate.Context{Name: path, Format: format}, payload)
}
