package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/intender/pkg/fuzzy"
	"github.com/sw33tLie/intender/pkg/intention"
	"github.com/sw33tLie/intender/pkg/storage"
)

var phraseCmd = &cobra.Command{
	Use:   "phrase <id> <text...>",
	Short: "Check a typed phrase against an intention",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args[1:], " ")
		partial, _ := cmd.Flags().GetBool("partial")

		return withStore(contextOrBackground(cmd), false, func(db *storage.DB) error {
			s, err := db.Get(contextOrBackground(cmd))
			if err != nil {
				return err
			}
			raw, ok := intention.Find(s.Intentions, args[0])
			if !ok {
				return fmt.Errorf("no intention with id %q", args[0])
			}

			opts := fuzzy.Options{Fuzzy: s.FuzzyMatching, MaxDistance: fuzzy.DefaultMaxDistance}
			accepted := fuzzy.Check(input, raw.Phrase, opts)
			if partial {
				accepted = fuzzy.CheckPartial(input, raw.Phrase, opts)
			}
			distance := fuzzy.Distance(strings.ToLower(strings.TrimSpace(input)), strings.ToLower(strings.TrimSpace(raw.Phrase)))
			fmt.Printf("accepted=%t distance=%d fuzzy=%t\n", accepted, distance, opts.Fuzzy)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(phraseCmd)
	phraseCmd.Flags().Bool("partial", false, "Check as live input (prefix) instead of a full phrase")
}
