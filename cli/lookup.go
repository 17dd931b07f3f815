package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"inferno.jolokia.com/common"
	"inferno.jolokia.com/config"
	"inferno.jolokia.com/directory"
)

// lookupCmd resolves a directory user from the command line using the
// application's own credentials instead of a signed-in user's token.
// Useful for verifying the app registration without going through the
// browser flow.
var lookupCmd = &cobra.Command{
	Use:   "lookup [email]",
	Short: "look up a directory user with application credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func init() {
	RootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig("INFERNO", cfgFile)
	if err != nil {
		return err
	}
	common.ConfigureLogger(cfg.Logging.Level, cfg.Logging.Format)

	client, err := directory.NewApplicationClient(cfg.Azure.TenantID, cfg.Azure.ClientID, cfg.Azure.ClientSecret)
	if err != nil {
		return fmt.Errorf("directory client setup failed: %w", err)
	}

	profile, err := client.LookupUser(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
