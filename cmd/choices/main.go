// Command choices normalizes option sources stored as JSON or YAML files and
// answers selection questions against them.
//
// Usage:
//
//	# Print the canonical records of a source
//	choices normalize colors.json
//
//	# Keep only records matching a rule
//	choices normalize colors.yaml --filter 'masked == false'
//
//	# Print a JSON Schema enum for the source
//	choices normalize colors.yaml --schema
//
//	# Resolve a submitted value and list the selected records
//	choices select colors.json __mask_1
//
//	# Report sources that change under a catalog directory
//	choices watch ./catalog
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
