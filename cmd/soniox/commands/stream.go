package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haivivi/soniox-sdk/pkg/audio"
	"github.com/haivivi/soniox-sdk/pkg/cli"
	"github.com/haivivi/soniox-sdk/pkg/soniox"
	"github.com/haivivi/soniox-sdk/pkg/soniox/promobserver"
)

const defaultStreamRate = 16000

var streamCmd = &cobra.Command{
	Use:   "stream <audio>",
	Short: "Real-time transcription of a local audio file",
	Long: `Stream a WAV or raw PCM (s16le) file over a real-time session.

WAV input is converted to --sample-rate and --channels. Raw PCM is assumed to
be at --raw-rate (default: --sample-rate) and --raw-channels. Audio is paced
at real time unless --fast is set. Use - to read raw PCM from stdin.

On a terminal, confirmed text is printed normally and pending text dimmed.
With --json every update is printed as one JSON line. Ctrl-C stops sending
audio and waits for the final results.

Example config file (stream.yaml):
  model: stt-rt-v3
  sample_rate: 16000
  num_channels: 1
  language_hints: [en]
  enable_speaker_diarization: true

Examples:
  soniox stream call.wav
  soniox stream call.wav -f stream.yaml -o transcript.json
  arecord -f S16_LE -r 16000 -c 1 | soniox stream - --raw-rate 16000
  soniox stream call.wav --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE:  runStream,
}

// streamResult is written to -o when the session ends.
type streamResult struct {
	SessionID string         `json:"session_id" yaml:"session_id"`
	State     string         `json:"state" yaml:"state"`
	Text      string         `json:"text" yaml:"text"`
	Turns     []soniox.Turn  `json:"turns,omitempty" yaml:"turns,omitempty"`
	Tokens    []soniox.Token `json:"tokens" yaml:"tokens"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStream(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	cfg := &soniox.SessionConfig{}
	if inputFile != "" {
		if err := cli.LoadRequest(inputFile, cfg); err != nil {
			return err
		}
	}
	if flags.Changed("model") {
		cfg.Model, _ = flags.GetString("model")
	}
	if flags.Changed("sample-rate") || cfg.SampleRate == 0 {
		cfg.SampleRate, _ = flags.GetInt("sample-rate")
	}
	if flags.Changed("channels") || cfg.NumChannels == 0 {
		cfg.NumChannels, _ = flags.GetInt("channels")
	}
	if flags.Changed("language-hints") {
		cfg.LanguageHints, _ = flags.GetStringSlice("language-hints")
	}
	if flags.Changed("diarize") {
		cfg.EnableSpeakerDiarization, _ = flags.GetBool("diarize")
	}
	if flags.Changed("language-id") {
		cfg.EnableLanguageIdentification, _ = flags.GetBool("language-id")
	}
	if flags.Changed("translate-to") {
		cfg.TranslationTargetLanguage, _ = flags.GetString("translate-to")
		cfg.EnableTranslation = cfg.TranslationTargetLanguage != ""
	}
	if flags.Changed("context-text") {
		cfg.Context, _ = flags.GetString("context-text")
	}
	if cfg.NumChannels != 1 && cfg.NumChannels != 2 {
		return fmt.Errorf("--channels must be 1 or 2 for file input, got %d", cfg.NumChannels)
	}

	var clientOpts []soniox.Option
	if addr, _ := flags.GetString("metrics-addr"); addr != "" {
		obs, stop, err := serveMetrics(addr)
		if err != nil {
			return err
		}
		defer stop()
		clientOpts = append(clientOpts, soniox.WithObserver(obs))
	}

	client, cctx, err := newClient(clientOpts...)
	if err != nil {
		return err
	}
	if cctx != nil && len(cfg.LanguageHints) == 0 {
		cfg.LanguageHints = cctx.LanguageHints
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	target := audio.Format{SampleRate: cfg.SampleRate, Stereo: cfg.NumChannels == 2}
	raw := target
	if flags.Changed("raw-rate") {
		raw.SampleRate, _ = flags.GetInt("raw-rate")
	}
	if flags.Changed("raw-channels") {
		n, _ := flags.GetInt("raw-channels")
		raw.Stereo = n == 2
	}
	in, err := openAudio(args[0], raw, target)
	if err != nil {
		return err
	}
	defer in.Close()

	chunk, _ := flags.GetDuration("chunk")
	if chunk <= 0 {
		chunk = 100 * time.Millisecond
	}
	var src soniox.AudioSource = soniox.NewReaderSource(in, target.BytesInDuration(chunk))
	if fast, _ := flags.GetBool("fast"); !fast {
		src = soniox.Paced(src, chunk)
	}

	var sessOpts []soniox.SessionOption
	if d, _ := flags.GetDuration("keepalive"); d > 0 {
		sessOpts = append(sessOpts, soniox.WithKeepAlive(d))
	}
	if d, _ := flags.GetDuration("drain-timeout"); d > 0 {
		sessOpts = append(sessOpts, soniox.WithDrainTimeout(d))
	}

	// Ctrl-C closes the session gracefully instead of cancelling it.
	sess, err := client.Stream.Open(context.WithoutCancel(cmd.Context()), cfg, src, sessOpts...)
	if err != nil {
		return err
	}
	go func() {
		select {
		case <-cmd.Context().Done():
			cli.PrintInfo("Stopping, waiting for final results...")
			sess.Close()
		case <-sess.Done():
		}
	}()

	started := time.Now()
	r := newStreamRenderer()
	var streamErr error
	for u, err := range sess.Updates() {
		if err != nil {
			streamErr = err
			break
		}
		if err := r.update(sess, u, time.Since(started)); err != nil {
			sess.Cancel()
			return err
		}
	}
	if err := sess.Close(); err != nil && streamErr == nil {
		streamErr = err
	}
	r.finish(sess)

	slog.Debug("stream ended", "session_id", sess.ID(), "state", sess.State(), "elapsed", time.Since(started))

	if outputFile != "" || jqExpr != "" {
		tr := sess.Transcript()
		res := streamResult{
			SessionID: sess.ID(),
			State:     sess.State().String(),
			Text:      tr.Text(),
			Tokens:    tr.Confirmed,
		}
		if cfg.EnableSpeakerDiarization {
			res.Turns = soniox.SpeakerTurns(tr.Confirmed)
		}
		if streamErr != nil {
			res.Error = streamErr.Error()
		}
		if err := outputResult(res); err != nil {
			return err
		}
	}
	return streamErr
}

func openAudio(name string, raw, target audio.Format) (*audio.File, error) {
	if name == "-" {
		return audio.NewFile(os.Stdin, raw, target)
	}
	return audio.OpenFile(name, raw, target)
}

// serveMetrics exposes a registry with session metrics on addr/metrics.
func serveMetrics(addr string) (*promobserver.Observer, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	obs := promobserver.New(reg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server", "error", err)
		}
	}()
	cli.PrintInfo("Serving metrics on http://%s/metrics", ln.Addr())

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	return obs, stop, nil
}

// streamRenderer prints updates as a live view on terminals, JSON lines with
// --json, or confirmed text only otherwise.
type streamRenderer struct {
	mode int
	view *cli.TranscriptView
	enc  *json.Encoder
}

const (
	renderPlain = iota
	renderLive
	renderJSON
)

func newStreamRenderer() *streamRenderer {
	r := &streamRenderer{}
	switch {
	case outputJSON:
		r.mode = renderJSON
		r.enc = json.NewEncoder(os.Stdout)
	case term.IsTerminal(os.Stdout.Fd()):
		r.mode = renderLive
		width, _, _ := term.GetSize(os.Stdout.Fd())
		r.view = &cli.TranscriptView{Styles: cli.NewStyles(cli.DefaultTheme), Width: width}
	}
	return r
}

func (r *streamRenderer) update(sess *soniox.Session, u *soniox.StreamUpdate, elapsed time.Duration) error {
	switch r.mode {
	case renderJSON:
		return r.enc.Encode(u)
	case renderLive:
		tr := sess.Transcript()
		status := fmt.Sprintf("%s %s", sess.State(), cli.FormatDuration(int(elapsed.Milliseconds())))
		_, err := fmt.Print(r.view.Redraw(tr.ConfirmedText(), soniox.JoinTokens(tr.Pending), status))
		return err
	default:
		var final []soniox.Token
		for _, t := range u.Tokens {
			if t.IsFinal {
				final = append(final, t)
			}
		}
		_, err := fmt.Print(soniox.JoinTokens(final))
		return err
	}
}

func (r *streamRenderer) finish(sess *soniox.Session) {
	switch r.mode {
	case renderLive:
		tr := sess.Transcript()
		fmt.Println(r.view.Redraw(tr.ConfirmedText(), "", sess.State().String()))
	case renderPlain:
		fmt.Println()
	}
}

func init() {
	streamCmd.Flags().String("model", "", "model (default: "+soniox.ModelRealtime+")")
	streamCmd.Flags().Int("sample-rate", defaultStreamRate, "session sample rate in Hz")
	streamCmd.Flags().Int("channels", 1, "session channel count (1 or 2)")
	streamCmd.Flags().Int("raw-rate", defaultStreamRate, "sample rate of raw PCM input")
	streamCmd.Flags().Int("raw-channels", 1, "channel count of raw PCM input")
	streamCmd.Flags().StringSlice("language-hints", nil, "expected languages, e.g. en,es")
	streamCmd.Flags().Bool("diarize", false, "enable speaker diarization")
	streamCmd.Flags().Bool("language-id", false, "enable language identification")
	streamCmd.Flags().String("translate-to", "", "enable one-way translation to this language")
	streamCmd.Flags().String("context-text", "", "free text that biases recognition (domain words, names)")
	streamCmd.Flags().Duration("chunk", 100*time.Millisecond, "audio per chunk")
	streamCmd.Flags().Bool("fast", false, "send audio as fast as possible instead of in real time")
	streamCmd.Flags().Duration("keepalive", 0, "send keepalive messages at this interval")
	streamCmd.Flags().Duration("drain-timeout", 0, "wait this long for final results after the audio ends")
	streamCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while streaming")
}
