package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/intender/internal/utils"
	"github.com/sw33tLie/intender/pkg/storage"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change reflection settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(contextOrBackground(cmd), false, func(db *storage.DB) error {
			s, err := db.Get(contextOrBackground(cmd))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintf(w, "%s\t%d\t\n", storage.KeyIntentions, len(s.Intentions))
			fmt.Fprintf(w, "%s\t%t\t\n", storage.KeyFuzzyMatching, s.FuzzyMatching)
			fmt.Fprintf(w, "%s\t%s\t\n", storage.KeyInactivityMode, s.InactivityMode)
			fmt.Fprintf(w, "%s\t%d (%s)\t\n", storage.KeyInactivityTimeoutMs, s.InactivityTimeoutMs, s.InactivityTimeout())
			return w.Flush()
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting (fuzzyMatching, inactivityMode, inactivityTimeoutMs)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := storage.ParsePatch(args[0], args[1])
		if err != nil {
			return err
		}
		return withStore(contextOrBackground(cmd), true, func(db *storage.DB) error {
			if err := db.Set(contextOrBackground(cmd), patch); err != nil {
				return err
			}
			utils.Log.Infof("Set %s = %s", args[0], args[1])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}
