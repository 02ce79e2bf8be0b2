package cmd

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var triggerInactivityCmd = &cobra.Command{
	Use:   "trigger-inactivity",
	Short: "Ask a running server (in test mode) to run the inactivity check now",
	RunE: func(cmd *cobra.Command, args []string) error {
		retryClient := retryablehttp.NewClient()
		retryClient.Logger = log.New(io.Discard, "", 0)
		retryClient.RetryMax = 3
		retryClient.RetryWaitMax = 2 * time.Second

		url := "http://" + viper.GetString("server.listen") + "/api/test/inactivity"
		req, err := retryablehttp.NewRequestWithContext(contextOrBackground(cmd), http.MethodPost, url, nil)
		if err != nil {
			return err
		}
		if user := viper.GetString("server.username"); user != "" {
			req.SetBasicAuth(user, viper.GetString("server.password"))
		}

		resp, err := retryClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("server at %s does not expose the test hook; start it with --testmode", viper.GetString("server.listen"))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
		}
		fmt.Println(string(body))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(triggerInactivityCmd)
}
