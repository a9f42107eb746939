package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/soniox-sdk/pkg/cli"
	"github.com/haivivi/soniox-sdk/pkg/jobstore"
	"github.com/haivivi/soniox-sdk/pkg/soniox"
)

// addTranscriptionFlags registers the flags shared by the transcribe
// commands. They override values loaded with -f.
func addTranscriptionFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "model (default: "+soniox.ModelAsync+")")
	cmd.Flags().StringSlice("language-hints", nil, "expected languages, e.g. en,es")
	cmd.Flags().Bool("diarize", false, "enable speaker diarization")
	cmd.Flags().Bool("language-id", false, "enable language identification")
	cmd.Flags().String("translate-to", "", "enable one-way translation to this language")
	cmd.Flags().String("context-text", "", "free text that biases recognition (domain words, names)")
	cmd.Flags().String("reference-id", "", "client reference id stored with the job")
	cmd.Flags().String("webhook-url", "", "URL notified when the job finishes")
	cmd.Flags().String("webhook-auth-header", "", "webhook auth header as Name:Value")
	cmd.Flags().Bool("cleanup", false, "delete the job and uploaded file after fetching the transcript")
}

// transcriptionOptions builds job options. Flags override the -f file,
// which overrides context defaults.
func transcriptionOptions(cmd *cobra.Command, ctx *cli.Context) (*soniox.TranscriptionOptions, error) {
	opts := &soniox.TranscriptionOptions{}
	if inputFile != "" {
		if err := cli.LoadRequest(inputFile, opts); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		opts.Model, _ = flags.GetString("model")
	}
	if flags.Changed("language-hints") {
		opts.LanguageHints, _ = flags.GetStringSlice("language-hints")
	}
	if flags.Changed("diarize") {
		opts.EnableSpeakerDiarization, _ = flags.GetBool("diarize")
	}
	if flags.Changed("language-id") {
		opts.EnableLanguageIdentification, _ = flags.GetBool("language-id")
	}
	if flags.Changed("translate-to") {
		opts.TranslationTargetLanguage, _ = flags.GetString("translate-to")
		opts.EnableTranslation = opts.TranslationTargetLanguage != ""
	}
	if flags.Changed("context-text") {
		opts.Context, _ = flags.GetString("context-text")
	}
	if flags.Changed("reference-id") {
		opts.ClientReferenceID, _ = flags.GetString("reference-id")
	}
	if flags.Changed("webhook-url") {
		opts.WebhookURL, _ = flags.GetString("webhook-url")
	}
	if flags.Changed("webhook-auth-header") {
		h, _ := flags.GetString("webhook-auth-header")
		name, value, ok := cutHeader(h)
		if !ok {
			return nil, fmt.Errorf("--webhook-auth-header must be Name:Value")
		}
		opts.WebhookAuthHeaderName, opts.WebhookAuthHeaderValue = name, value
	}
	if flags.Changed("cleanup") {
		opts.Cleanup, _ = flags.GetBool("cleanup")
	}

	if ctx != nil {
		if opts.Model == "" {
			opts.Model = ctx.DefaultModel
		}
		if len(opts.LanguageHints) == 0 {
			opts.LanguageHints = ctx.LanguageHints
		}
	}
	return opts, opts.Validate()
}

func cutHeader(h string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(h, ":")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	return name, value, ok && name != "" && value != ""
}

// openHistory opens the local job history. Callers treat a failure as
// non-fatal.
func openHistory() (jobstore.Store, error) {
	paths, err := cli.NewPaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureJobsDir(); err != nil {
		return nil, err
	}
	return jobstore.OpenBadger(jobstore.BadgerOptions{
		Dir:    paths.JobsDir(),
		Logger: slog.Default(),
	})
}

// recordJobs writes or refreshes history entries for jobs. source maps job
// ids to the path or URL they were created from; ids without a source keep
// the source already recorded.
func recordJobs(ctx context.Context, jobs []*soniox.Transcription, source map[string]string) {
	store, err := openHistory()
	if err != nil {
		slog.Warn("job history unavailable", "error", err)
		return
	}
	defer store.Close()

	now := time.Now()
	for _, job := range jobs {
		if job == nil {
			continue
		}
		rec, err := store.Get(ctx, job.ID)
		if errors.Is(err, jobstore.ErrNotFound) {
			rec = &jobstore.Record{ID: job.ID, CreatedAt: job.CreatedAt}
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = now
			}
		} else if err != nil {
			slog.Warn("read job history", "id", job.ID, "error", err)
			continue
		}
		if src, ok := source[job.ID]; ok {
			rec.Source = src
		} else if rec.Source == "" {
			rec.Source = firstNonEmpty(job.AudioURL, job.Filename)
		}
		rec.FileID = firstNonEmpty(job.FileID, rec.FileID)
		rec.Model = firstNonEmpty(job.Model, rec.Model)
		rec.Status = string(job.Status)
		rec.Error = job.ErrorMessage
		rec.UpdatedAt = now
		if err := store.Put(ctx, rec); err != nil {
			slog.Warn("write job history", "id", job.ID, "error", err)
		}
	}
}

func forgetJob(ctx context.Context, id string) {
	store, err := openHistory()
	if err != nil {
		return
	}
	defer store.Close()
	if err := store.Delete(ctx, id); err != nil {
		slog.Warn("delete job history", "id", id, "error", err)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
