package main

import (
	"encoding/json"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	choices "github.com/goliatone/go-choices"
	"github.com/spf13/cobra"
)

var dumpConfig = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}

func newNormalizeCommand(flags *globalFlags) *cobra.Command {
	var (
		schema bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Print the canonical records of an option source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := normalizeFile(cmd, flags, args[0])
			if err != nil {
				return err
			}
			var out any = records
			if schema {
				doc, err := choices.Describe(records)
				if err != nil {
					return err
				}
				out = doc.Document
			}
			switch format {
			case "json":
				return writeJSON(cmd, out)
			case "dump":
				dumpConfig.Fdump(cmd.OutOrStdout(), out)
				return nil
			}
			return fmt.Errorf("unknown format %q", format)
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "print a JSON Schema enum instead of records")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, dump (Go values with their types)")
	return cmd
}

func normalizeFile(cmd *cobra.Command, flags *globalFlags, path string) ([]choices.Record, error) {
	source, err := readSource(path)
	if err != nil {
		return nil, err
	}
	n, sync, err := flags.normalizer()
	if err != nil {
		return nil, err
	}
	defer sync()
	return n.NormalizeContext(commandContext(cmd), source, nil)
}

func writeJSON(cmd *cobra.Command, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
	return err
}
