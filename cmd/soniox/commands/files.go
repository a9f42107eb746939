package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/soniox-sdk/pkg/cli"
	"github.com/haivivi/soniox-sdk/pkg/soniox"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Uploaded file management",
	Long: `Upload, inspect, list and delete audio files stored with Soniox.

Uploaded files can be transcribed with 'soniox transcribe' or referenced by
id from a request file.`,
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		reqCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		f, err := client.Files.UploadFile(reqCtx, args[0])
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		cli.PrintSuccess("Uploaded %s (%s) as %s", f.Filename, cli.FormatBytes(f.Size), f.ID)
		return outputResult(f)
	},
}

var filesGetCmd = &cobra.Command{
	Use:   "get <file_id>",
	Short: "Show an uploaded file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		reqCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		f, err := client.Files.Get(reqCtx, args[0])
		if err != nil {
			return err
		}
		return outputResult(f)
	},
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files",
	Long: `List uploaded files, one page at a time.

Examples:
  soniox files list --limit 20
  soniox files list --cursor <next_page_cursor> --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		cursor, _ := cmd.Flags().GetString("cursor")

		reqCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		list, err := client.Files.List(reqCtx, &soniox.ListOptions{Limit: limit, Cursor: cursor})
		if err != nil {
			return err
		}
		return outputResult(list)
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <file_id>...",
	Short: "Delete uploaded files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		reqCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		for _, id := range args {
			if err := client.Files.Delete(reqCtx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			cli.PrintSuccess("Deleted file %s", id)
		}
		return nil
	},
}

func init() {
	filesListCmd.Flags().Int("limit", 0, "page size")
	filesListCmd.Flags().String("cursor", "", "page cursor from a previous list")

	filesCmd.AddCommand(filesUploadCmd)
	filesCmd.AddCommand(filesGetCmd)
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesDeleteCmd)
}
