package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/confirmation-letters/internal/naming"
	"github.com/jonathan/confirmation-letters/internal/observability"
	"github.com/jonathan/confirmation-letters/internal/participants"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "List the file each participant would be generated into",
	Long:  "Dry run: reads the participant list and prints the generated file name for every participant without writing or compiling anything.",
	Args:  cobra.NoArgs,
	RunE:  runNames,
}

func init() {
	rootCmd.AddCommand(namesCmd)
}

func runNames(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, false)
	if err != nil {
		return err
	}

	names, err := participants.Read(cfg.ResolvePath(cfg.Participants))
	if err != nil {
		return err
	}

	namer := naming.NewNamer(cfg.FilePrefix, cfg.Transliteration)
	rows := make([]observability.NameRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, observability.NameRow{
			Name:       name,
			SourceFile: namer.SourceFile(name, cfg.SourceExt),
		})
	}

	observability.NewPrinter(os.Stdout).PrintNames(rows)
	_, _ = fmt.Fprintf(os.Stdout, "%d participant(s)\n", len(rows))
	return nil
}
