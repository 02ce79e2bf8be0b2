package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/intender/internal/utils"
	"github.com/sw33tLie/intender/pkg/intention"
	"github.com/sw33tLie/intender/pkg/storage"
)

var intentionsCmd = &cobra.Command{
	Use:     "intentions",
	Aliases: []string{"i"},
	Short:   "Manage the websites that require a reflection",
}

var intentionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured intentions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(contextOrBackground(cmd), false, func(db *storage.DB) error {
			s, err := db.Get(contextOrBackground(cmd))
			if err != nil {
				return err
			}
			if len(s.Intentions) == 0 {
				fmt.Println("No intentions configured.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tURL\tPHRASE\tSTATUS\t")
			for _, raw := range s.Intentions {
				status := "ok"
				if err := raw.Validate(); err != nil {
					status = err.Error()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", raw.ID, raw.URL, raw.Phrase, status)
			}
			return w.Flush()
		})
	},
}

var intentionsAddCmd = &cobra.Command{
	Use:   "add <url> <phrase...>",
	Short: "Add an intention",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := intention.NewRaw()
		raw.URL = args[0]
		raw.Phrase = strings.Join(args[1:], " ")
		if err := raw.Validate(); err != nil {
			return err
		}

		return updateIntentions(cmd, func(raws []intention.Raw) ([]intention.Raw, error) {
			return append(raws, raw), nil
		}, func() {
			fmt.Println(raw.ID)
		})
	},
}

var intentionsRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove an intention",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return updateIntentions(cmd, func(raws []intention.Raw) ([]intention.Raw, error) {
			out := raws[:0]
			for _, raw := range raws {
				if raw.ID != id {
					out = append(out, raw)
				}
			}
			if len(out) == len(raws) {
				return nil, fmt.Errorf("no intention with id %q", id)
			}
			return out, nil
		}, func() {
			utils.Log.Infof("Removed intention %s", id)
		})
	},
}

var intentionsEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the URL or phrase of an intention",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		url, _ := cmd.Flags().GetString("url")
		phrase, _ := cmd.Flags().GetString("phrase")
		if url == "" && phrase == "" {
			return errors.New("nothing to change: pass --url and/or --phrase")
		}

		return updateIntentions(cmd, func(raws []intention.Raw) ([]intention.Raw, error) {
			for i := range raws {
				if raws[i].ID != id {
					continue
				}
				if url != "" {
					raws[i].URL = url
				}
				if phrase != "" {
					raws[i].Phrase = phrase
				}
				if err := raws[i].Validate(); err != nil {
					return nil, err
				}
				return raws, nil
			}
			return nil, fmt.Errorf("no intention with id %q", id)
		}, func() {
			utils.Log.Infof("Updated intention %s", id)
		})
	},
}

// updateIntentions applies fn to the stored intentions under the write lock.
func updateIntentions(cmd *cobra.Command, fn func([]intention.Raw) ([]intention.Raw, error), done func()) error {
	return withStore(contextOrBackground(cmd), true, func(db *storage.DB) error {
		ctx := contextOrBackground(cmd)
		s, err := db.Get(ctx)
		if err != nil {
			return err
		}
		raws, err := fn(s.Intentions)
		if err != nil {
			return err
		}
		raws = intention.Prune(raws)
		if err := db.Set(ctx, storage.Patch{Intentions: &raws}); err != nil {
			return err
		}
		done()
		return nil
	})
}

func init() {
	rootCmd.AddCommand(intentionsCmd)
	intentionsCmd.AddCommand(intentionsListCmd)
	intentionsCmd.AddCommand(intentionsAddCmd)
	intentionsCmd.AddCommand(intentionsRmCmd)
	intentionsCmd.AddCommand(intentionsEditCmd)

	intentionsEditCmd.Flags().String("url", "", "New URL")
	intentionsEditCmd.Flags().String("phrase", "", "New phrase")
}
