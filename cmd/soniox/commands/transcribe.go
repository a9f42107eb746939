package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/haivivi/soniox-sdk/pkg/cli"
	"github.com/haivivi/soniox-sdk/pkg/soniox"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Asynchronous transcription",
	Long: `Transcribe local audio files or public URLs.

By default the command waits for the job and prints the transcript. With
--wait=false it prints the created job; use 'soniox jobs wait <id>' later.

Options can be loaded from a YAML or JSON file with -f. Flags override it.

Example request file (transcribe.yaml):
  model: stt-async-v3
  language_hints: [en, es]
  enable_speaker_diarization: true
  context: "Soniox, Kubernetes, gRPC"
  cleanup: true`,
}

var transcribeFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Upload and transcribe a local file",
	Long: `Upload a local audio file and transcribe it.

Examples:
  soniox transcribe file meeting.mp3 --diarize
  soniox transcribe file call.wav -f transcribe.yaml --json --jq .text
  soniox transcribe file call.wav --wait=false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		client, cctx, err := newClient()
		if err != nil {
			return err
		}
		opts, err := transcriptionOptions(cmd, cctx)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if wait, _ := cmd.Flags().GetBool("wait"); !wait {
			f, err := client.Files.UploadFile(ctx, path)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			job, err := client.Transcriptions.Create(ctx, &soniox.CreateTranscriptionRequest{FileID: f.ID, Options: opts})
			if err != nil {
				return err
			}
			recordJobs(ctx, []*soniox.Transcription{job}, map[string]string{job.ID: path})
			cli.PrintSuccess("Created job %s", job.ID)
			return outputResult(job)
		}

		slog.Debug("transcribing", "path", path)
		res, err := client.TranscribeFile(ctx, path, opts)
		if err != nil {
			return err
		}
		if !opts.Cleanup {
			recordJobs(ctx, []*soniox.Transcription{res.Transcription}, map[string]string{res.Transcription.ID: path})
		}
		return outputTranscript(cmd, res)
	},
}

var transcribeURLCmd = &cobra.Command{
	Use:   "url <audio_url>",
	Short: "Transcribe audio at a public URL",
	Long: `Transcribe audio that Soniox can fetch over http(s).

Examples:
  soniox transcribe url https://example.com/podcast.mp3 --language-hints en`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audioURL := args[0]
		client, cctx, err := newClient()
		if err != nil {
			return err
		}
		opts, err := transcriptionOptions(cmd, cctx)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if wait, _ := cmd.Flags().GetBool("wait"); !wait {
			job, err := client.Transcriptions.Create(ctx, &soniox.CreateTranscriptionRequest{AudioURL: audioURL, Options: opts})
			if err != nil {
				return err
			}
			recordJobs(ctx, []*soniox.Transcription{job}, map[string]string{job.ID: audioURL})
			cli.PrintSuccess("Created job %s", job.ID)
			return outputResult(job)
		}

		res, err := client.TranscribeURL(ctx, audioURL, opts)
		if err != nil {
			return err
		}
		if !opts.Cleanup {
			recordJobs(ctx, []*soniox.Transcription{res.Transcription}, map[string]string{res.Transcription.ID: audioURL})
		}
		return outputTranscript(cmd, res)
	},
}

// fileSummary is one line of 'transcribe files' output.
type fileSummary struct {
	Path       string  `json:"path" yaml:"path"`
	JobID      string  `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Text       string  `json:"text,omitempty" yaml:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

var transcribeFilesCmd = &cobra.Command{
	Use:   "files <path>...",
	Short: "Transcribe several local files concurrently",
	Long: `Upload and transcribe several files with bounded concurrency.

Results are printed in argument order. The command fails if any file failed.

Examples:
  soniox transcribe files *.wav --concurrency 8 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cctx, err := newClient()
		if err != nil {
			return err
		}
		opts, err := transcriptionOptions(cmd, cctx)
		if err != nil {
			return err
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		ctx := cmd.Context()

		results, err := client.TranscribeFiles(ctx, args, opts, concurrency)
		if err != nil {
			return err
		}

		summary := make([]fileSummary, len(results))
		var jobs []*soniox.Transcription
		source := make(map[string]string)
		failed := 0
		for i, r := range results {
			summary[i].Path = r.Path
			if r.Err != nil {
				summary[i].Error = r.Err.Error()
				failed++
				continue
			}
			summary[i].JobID = r.Result.Transcription.ID
			summary[i].Text = r.Result.Text
			summary[i].Confidence = r.Result.Confidence
			jobs = append(jobs, r.Result.Transcription)
			source[r.Result.Transcription.ID] = r.Path
		}
		if !opts.Cleanup {
			recordJobs(ctx, jobs, source)
		}
		if err := outputResult(summary); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(results))
		}
		return nil
	},
}

// outputTranscript prints the result, or only its text with --text.
func outputTranscript(cmd *cobra.Command, res *soniox.Result) error {
	if textOnly, _ := cmd.Flags().GetBool("text"); textOnly {
		return cli.Output(res.Text, cli.OutputOptions{Format: cli.FormatRaw, File: outputFile})
	}
	return outputResult(res)
}

func init() {
	for _, c := range []*cobra.Command{transcribeFileCmd, transcribeURLCmd} {
		addTranscriptionFlags(c)
		c.Flags().Bool("wait", true, "wait for the transcript")
		c.Flags().Bool("text", false, "print only the transcript text")
	}
	addTranscriptionFlags(transcribeFilesCmd)
	transcribeFilesCmd.Flags().Int("concurrency", soniox.DefaultConcurrency, "maximum files in flight")

	transcribeCmd.AddCommand(transcribeFileCmd)
	transcribeCmd.AddCommand(transcribeURLCmd)
	transcribeCmd.AddCommand(transcribeFilesCmd)
}
