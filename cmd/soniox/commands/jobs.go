package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/soniox-sdk/pkg/cli"
	"github.com/haivivi/soniox-sdk/pkg/soniox"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Transcription job management",
	Long: `Inspect, wait for and delete transcription jobs.

'soniox jobs history' lists the jobs this machine submitted, including the
local path or URL each job was created from.`,
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job_id>",
	Short: "Show a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		job, err := client.Transcriptions.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		recordJobs(cmd.Context(), []*soniox.Transcription{job}, nil)
		return outputResult(job)
	},
}

var jobsTranscriptCmd = &cobra.Command{
	Use:   "transcript <job_id>",
	Short: "Fetch the transcript of a completed job",
	Long: `Fetch the transcript of a completed job.

Examples:
  soniox jobs transcript <id> --text
  soniox jobs transcript <id> --json --jq '.tokens[] | select(.confidence < 0.5)'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		tr, err := client.Transcriptions.GetTranscript(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if textOnly, _ := cmd.Flags().GetBool("text"); textOnly {
			return cli.Output(tr.Text, cli.OutputOptions{Format: cli.FormatRaw, File: outputFile})
		}
		return outputResult(tr)
	},
}

var jobsSpeakersCmd = &cobra.Command{
	Use:   "speakers <job_id>",
	Short: "Show a diarized transcript as speaker turns",
	Long: `Group the transcript of a completed job into speaker turns.

The job must have been created with speaker diarization. Tokens without a
speaker are attributed to "unknown".

Examples:
  soniox jobs speakers <id>
  soniox jobs speakers <id> --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		tr, err := client.Transcriptions.GetTranscript(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		turns := soniox.SpeakerTurns(tr.Tokens)
		if outputJSON || outputFmt != "" || jqExpr != "" {
			return outputResult(turns)
		}
		return printTurns(os.Stdout, turns)
	},
}

func printTurns(w io.Writer, turns []soniox.Turn) error {
	styles := cli.NewStyles(cli.DefaultTheme)
	for _, t := range turns {
		label := fmt.Sprintf("[%s] Speaker %s", cli.FormatTimestamp(int(t.StartMs)), t.Speaker)
		if _, err := fmt.Fprintln(w, styles.SpeakerLine(label, t.Text)); err != nil {
			return err
		}
	}
	return nil
}

var jobsWaitCmd = &cobra.Command{
	Use:   "wait <job_id>",
	Short: "Wait for a job to finish",
	Long: `Poll a job until it completes or fails.

Examples:
  soniox jobs wait <id> --timeout 10m
  soniox jobs wait <id> --transcript --text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		withTranscript, _ := cmd.Flags().GetBool("transcript")

		var last soniox.TranscriptionStatus
		job, err := client.Transcriptions.Wait(cmd.Context(), args[0], &soniox.WaitOptions{
			Interval: interval,
			Timeout:  timeout,
			OnPoll: func(j *soniox.Transcription) {
				if j.Status != last {
					cli.PrintInfo("%s: %s", j.ID, j.Status)
					last = j.Status
				}
			},
		})
		if job != nil {
			recordJobs(cmd.Context(), []*soniox.Transcription{job}, nil)
		}
		if err != nil {
			return err
		}
		if !withTranscript {
			return outputResult(job)
		}
		tr, err := client.Transcriptions.GetTranscript(cmd.Context(), job.ID)
		if err != nil {
			return err
		}
		if textOnly, _ := cmd.Flags().GetBool("text"); textOnly {
			return cli.Output(tr.Text, cli.OutputOptions{Format: cli.FormatRaw, File: outputFile})
		}
		return outputResult(tr)
	},
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs stored with Soniox",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		cursor, _ := cmd.Flags().GetString("cursor")
		list, err := client.Transcriptions.List(cmd.Context(), &soniox.ListOptions{Limit: limit, Cursor: cursor})
		if err != nil {
			return err
		}
		return outputResult(list)
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job_id>...",
	Short: "Delete jobs",
	Long: `Delete jobs and their transcripts. With --with-file the uploaded audio
file of each job is deleted too.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		withFile, _ := cmd.Flags().GetBool("with-file")
		ctx := cmd.Context()

		for _, id := range args {
			var fileID string
			if withFile {
				job, err := client.Transcriptions.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("get %s: %w", id, err)
				}
				fileID = job.FileID
			}
			if err := client.Transcriptions.Delete(ctx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			forgetJob(ctx, id)
			cli.PrintSuccess("Deleted job %s", id)
			if fileID != "" {
				if err := client.Files.Delete(ctx, fileID); err != nil {
					return fmt.Errorf("delete file %s: %w", fileID, err)
				}
				cli.PrintSuccess("Deleted file %s", fileID)
			}
		}
		return nil
	},
}

var jobsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List jobs submitted from this machine",
	Long: `List the local job history, newest first.

The history is stored in ~/.soniox/data/jobs and records the source path or
URL of each job. It is updated by 'transcribe', 'jobs get' and 'jobs wait'.

Examples:
  soniox jobs history --limit 10
  soniox jobs history --json --jq '.[] | select(.status == "error") | .id'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		store, err := openHistory()
		if err != nil {
			return fmt.Errorf("open job history: %w", err)
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		recs, err := store.List(ctx, limit)
		if err != nil {
			return err
		}
		return outputResult(recs)
	},
}

func init() {
	jobsTranscriptCmd.Flags().Bool("text", false, "print only the transcript text")

	jobsWaitCmd.Flags().Duration("interval", 0, "poll interval (default: client poll interval)")
	jobsWaitCmd.Flags().Duration("timeout", 0, "give up after this long (0: no limit)")
	jobsWaitCmd.Flags().Bool("transcript", false, "print the transcript instead of the job")
	jobsWaitCmd.Flags().Bool("text", false, "with --transcript, print only the text")

	jobsListCmd.Flags().Int("limit", 0, "page size")
	jobsListCmd.Flags().String("cursor", "", "page cursor from a previous list")

	jobsDeleteCmd.Flags().Bool("with-file", false, "also delete the uploaded audio file")

	jobsHistoryCmd.Flags().Int("limit", 20, "number of entries (0: all)")

	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsTranscriptCmd)
	jobsCmd.AddCommand(jobsSpeakersCmd)
	jobsCmd.AddCommand(jobsWaitCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
	jobsCmd.AddCommand(jobsHistoryCmd)
}
