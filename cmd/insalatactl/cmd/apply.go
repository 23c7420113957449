package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var applyConfigurationCmd = &cobra.Command{
	Use:   "apply-configuration <environment> <name>",
	Short: "Diff, plan and execute against an uploaded goal document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Status string `json:"status"`
		}
		path := fmt.Sprintf("/environments/%s/files/%s/apply", args[0], args[1])
		if err := doRequest("POST", path, nil, &resp); err != nil {
			return err
		}
		fmt.Println(resp.Status)
		return nil
	},
}

var exportEnvironmentCmd = &cobra.Command{
	Use:   "export-environment <environment>",
	Short: "Export an environment's current graph as a goal document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fmt.Sprintf("/environments/%s/export", args[0])
		data, err := rawRequest("GET", path)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}
