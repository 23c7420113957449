package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var uploadConfigurationCmd = &cobra.Command{
	Use:   "upload-configuration <environment> <name> <file>",
	Short: "Upload a goal-configuration XML document",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, name, file := args[0], args[1], args[2]
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("insalatactl: read %s: %w", file, err)
		}
		path := fmt.Sprintf("/environments/%s/files?name=%s", env, name)
		if err := doRequest("POST", path, bytes.NewReader(data), nil); err != nil {
			return err
		}
		fmt.Printf("uploaded %s to %s\n", name, env)
		return nil
	},
}

var listFilesCmd = &cobra.Command{
	Use:   "list-files <environment>",
	Short: "List an environment's uploaded goal documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Files []string `json:"files"`
		}
		path := fmt.Sprintf("/environments/%s/files", args[0])
		if err := doRequest("GET", path, nil, &resp); err != nil {
			return err
		}
		for _, f := range resp.Files {
			fmt.Println(f)
		}
		return nil
	},
}

var getFileCmd = &cobra.Command{
	Use:   "get-file <environment> <name>",
	Short: "Fetch an uploaded goal document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fmt.Sprintf("/environments/%s/files/%s", args[0], args[1])
		req, err := rawRequest("GET", path)
		if err != nil {
			return err
		}
		fmt.Println(string(req))
		return nil
	},
}
