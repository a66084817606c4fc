// Oraculum draws a tarot card from the terminal.
//
// It runs the same draw sequence as the web server: a reading from the text
// model, then an illustration from the image model. Generated cards can be
// edited with a free-text instruction.
//
// Usage:
//
//	oraculum draw --out card.png
//	oraculum edit --in card.png --prompt "style cyberpunk" --out card-edit.png
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "oraculum",
	Short: "Le Tarot de l'IA Spirituelle",
	Long: `Draws a random tarot card with Gemini and writes its illustration to disk.

The API key is read from GEMINI_API_KEY (or API_KEY), optionally from a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(drawCmd, editCmd)
}
