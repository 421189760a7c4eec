package main

import (
	choices "github.com/goliatone/go-choices"
	"github.com/goliatone/go-choices/internal/hydrate"
	"github.com/spf13/cobra"
)

type selectResult struct {
	Candidate any              `json:"candidate"`
	Resolved  any              `json:"resolved"`
	Selected  []selectedRecord `json:"selected"`
}

type selectedRecord struct {
	Index  int                   `json:"index"`
	Tier   choices.SelectionTier `json:"tier"`
	Record choices.Record        `json:"record"`
}

func newSelectCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "select <file> <value>",
		Short: "Resolve a submitted value and list the records it selects",
		Long: `select resolves value against the records of file: a mask token is replaced
by the original value it stands for. Every record whose true value should be
selected for the resolved value is then printed with the deciding tier.

value is read as JSON when it parses, otherwise as a plain string.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := normalizeFile(cmd, flags, args[0])
			if err != nil {
				return err
			}
			candidate := parseCandidate(args[1])
			resolved := choices.ResolveOriginal(records, candidate)

			result := selectResult{Candidate: candidate, Resolved: resolved, Selected: []selectedRecord{}}
			for i, record := range records {
				if record.Passthrough {
					continue
				}
				trace := choices.Explain(resolved, record.TrueValue())
				if trace.Selected {
					result.Selected = append(result.Selected, selectedRecord{Index: i, Tier: trace.Tier, Record: record})
				}
			}
			return writeJSON(cmd, result)
		},
	}
}

func parseCandidate(raw string) any {
	if value, err := hydrate.Decode(hydrate.FormatJSON, []byte(raw)); err == nil {
		return value
	}
	return raw
}
