// Package main provides the entry point for the confirmgen CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "confirmgen",
	Short: "Participant confirmation generator",
	Long:  "confirmgen writes one personalized confirmation per participant by substituting each name into a document template and compiling it with pdflatex.",
	// Errors are printed once by main
	SilenceErrors: true,
	SilenceUsage:  true,
}

var (
	configFile       string
	verbose          bool
	workDirFlag      string
	participantsFlag string
	templateFlag     string
	placeholderFlag  string
)

func init() {
	addCommonFlags(rootCmd.PersistentFlags())
}

// addCommonFlags registers the flags every command shares
func addCommonFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&configFile, "config", "c", "", "Path to JSON or YAML config file (default: $CONFIRMGEN_CONFIG)")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	fs.StringVarP(&workDirFlag, "work-dir", "w", "", "Directory to generate and compile in (default: current directory)")
	fs.StringVarP(&participantsFlag, "participants", "p", "", "Participant list, one name per line (default: participants.txt)")
	fs.StringVarP(&templateFlag, "template", "t", "", "Template document (default: confirmation_template.tex)")
	fs.StringVar(&placeholderFlag, "placeholder", "", "Placeholder token in the template (default: PLATZHALTER-NAMEN)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
