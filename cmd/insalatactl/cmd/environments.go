package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getEnvironmentsCmd = &cobra.Command{
	Use:   "get-environments",
	Short: "List environments loaded by the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Environments []string `json:"environments"`
		}
		if err := doRequest("GET", "/environments", nil, &resp); err != nil {
			return err
		}
		return render(resp, func() {
			for _, name := range resp.Environments {
				fmt.Println(name)
			}
		})
	},
}

var getCommandsCmd = &cobra.Command{
	Use:   "get-commands",
	Short: "List the daemon's RPC command table",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Commands []struct {
				Name string `json:"Name"`
				Doc  string `json:"Doc"`
			} `json:"commands"`
		}
		if err := doRequest("GET", "/commands", nil, &resp); err != nil {
			return err
		}
		return render(resp, func() {
			for _, c := range resp.Commands {
				fmt.Printf("%-24s %s\n", c.Name, c.Doc)
			}
		})
	},
}

var getSetupProgressCmd = &cobra.Command{
	Use:   "get-setup-progress <environment>",
	Short: "Report an environment's last deployment progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Progress string `json:"progress"`
		}
		path := fmt.Sprintf("/environments/%s/progress", args[0])
		if err := doRequest("GET", path, nil, &resp); err != nil {
			return err
		}
		fmt.Println(resp.Progress)
		return nil
	},
}
