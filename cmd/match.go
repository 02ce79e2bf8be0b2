package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/intender/pkg/index"
	"github.com/sw33tLie/intender/pkg/scope"
	"github.com/sw33tLie/intender/pkg/storage"
)

var matchCmd = &cobra.Command{
	Use:   "match <url>",
	Short: "Show which intention a URL resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		verbose, _ := cmd.Flags().GetBool("verbose")

		if verbose {
			s, ok := scope.Parse(target)
			if !ok {
				return fmt.Errorf("cannot parse %q", target)
			}
			fmt.Printf("domain:     %s\n", s.Domain)
			fmt.Printf("suffix:     %s (language: %t)\n", s.PublicSuffix, s.HasLanguageSuffix)
			fmt.Printf("subdomain:  %s (language: %t)\n", s.Subdomain, s.HasLanguageSubdomain)
			fmt.Printf("path:       %s (language: %t)\n", s.Path, s.HasLanguagePathStart)
		}

		return withStore(contextOrBackground(cmd), false, func(db *storage.DB) error {
			s, err := db.Get(contextOrBackground(cmd))
			if err != nil {
				return err
			}
			entry, ok := index.Build(s.Intentions).Lookup(target)
			if !ok {
				fmt.Println("No intention matches.")
				return nil
			}
			fmt.Printf("%s\t%s\t%s\n", entry.Intention.ID, entry.Scope.OriginalURL, entry.Intention.Phrase)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.Flags().BoolP("verbose", "v", false, "Also print how the URL is decomposed")
}
