package soniox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAPI is an in-memory REST backend. Jobs complete after pollsToComplete
// status reads.
type fakeAPI struct {
	t               *testing.T
	pollsToComplete int
	failFiles       map[string]bool

	mu       sync.Mutex
	files    map[string]File
	jobs     map[string]*Transcription
	polls    map[string]int
	bodies   map[string]createTranscriptionBody
	deleted  []string
	inFlight atomic.Int32
	peak     atomic.Int32
	nextID   int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:               t,
		pollsToComplete: 1,
		files:           map[string]File{},
		jobs:            map[string]*Transcription{},
		polls:           map[string]int{},
		bodies:          map[string]createTranscriptionBody{},
	}
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/files", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)

		n := f.inFlight.Add(1)
		for {
			p := f.peak.Load()
			if n <= p || f.peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		f.inFlight.Add(-1)

		f.mu.Lock()
		fl := File{ID: f.id("file"), Filename: header.Filename, Size: int64(len(data)), CreatedAt: time.Now()}
		f.files[fl.ID] = fl
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, fl)
	})
	mux.HandleFunc("GET /v1/files", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := FileList{}
		for _, fl := range f.files {
			list.Files = append(list.Files, fl)
		}
		if r.URL.Query().Get("limit") == "1" {
			list.Files = list.Files[:min(1, len(list.Files))]
			list.NextPageCursor = "next"
		}
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("GET /v1/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		fl, ok := f.files[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, apiErrorBody{StatusCode: 404, ErrorType: "not_found", Message: "file not found"})
			return
		}
		writeJSON(w, http.StatusOK, fl)
	})
	mux.HandleFunc("DELETE /v1/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.files, r.PathValue("id"))
		f.deleted = append(f.deleted, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /v1/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		var body createTranscriptionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		job := &Transcription{
			ID:                       f.id("job"),
			Status:                   TranscriptionStatusQueued,
			Model:                    body.Model,
			FileID:                   body.FileID,
			AudioURL:                 body.AudioURL,
			EnableSpeakerDiarization: body.EnableSpeakerDiarization,
		}
		if fl, ok := f.files[body.FileID]; ok {
			job.Filename = fl.Filename
		}
		f.jobs[job.ID] = job
		f.bodies[job.ID] = body
		writeJSON(w, http.StatusCreated, job)
	})
	mux.HandleFunc("GET /v1/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var list TranscriptionList
		for _, j := range f.jobs {
			list.Transcriptions = append(list.Transcriptions, *j)
		}
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("GET /v1/transcriptions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		job, ok := f.jobs[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, apiErrorBody{StatusCode: 404, Message: "transcription not found"})
			return
		}
		f.polls[job.ID]++
		if f.polls[job.ID] >= f.pollsToComplete {
			job.Status = TranscriptionStatusCompleted
			if f.failFiles[job.Filename] {
				job.Status = TranscriptionStatusError
				job.ErrorMessage = "unsupported audio"
			}
		} else {
			job.Status = TranscriptionStatusProcessing
		}
		writeJSON(w, http.StatusOK, job)
	})
	mux.HandleFunc("GET /v1/transcriptions/{id}/transcript", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		job, ok := f.jobs[r.PathValue("id")]
		if !ok || job.Status != TranscriptionStatusCompleted {
			writeJSON(w, http.StatusConflict, apiErrorBody{StatusCode: 409, Message: "not ready"})
			return
		}
		text := "text of " + job.Filename + job.AudioURL
		writeJSON(w, http.StatusOK, TranscriptResult{ID: job.ID, Text: text, Tokens: []Token{
			{Text: "text", EndMs: 100, Confidence: 0.8, Speaker: "1"},
			{Text: " of", StartMs: 100, EndMs: 200, Confidence: 0.6, Speaker: "2"},
		}})
	})
	mux.HandleFunc("DELETE /v1/transcriptions/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.jobs, r.PathValue("id"))
		f.deleted = append(f.deleted, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newRESTClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	all := []Option{
		WithBaseURL(srv.URL),
		WithLogger(discardLogger()),
		WithPollInterval(time.Millisecond),
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
	}
	return NewClient("test-key", append(all, opts...)...)
}

func writeAudio(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("RIFF....fake audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestFiles(t *testing.T) {
	api := newFakeAPI(t)
	client := newRESTClient(t, api.handler())
	ctx := context.Background()

	f, err := client.Files.Upload(ctx, "a.wav", strings.NewReader("1234"))
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if f.Filename != "a.wav" || f.Size != 4 {
		t.Errorf("uploaded = %+v, want a.wav of 4 bytes", f)
	}

	got, err := client.Files.Get(ctx, f.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != f.ID {
		t.Errorf("Get ID = %q, want %q", got.ID, f.ID)
	}

	client.Files.Upload(ctx, "b.wav", strings.NewReader("5"))
	list, err := client.Files.List(ctx, &ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list.Files) != 1 || list.NextPageCursor != "next" {
		t.Errorf("List = %+v, want one file and a cursor", list)
	}

	if err := client.Files.Delete(ctx, f.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	_, err = client.Files.Get(ctx, f.ID)
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("Get deleted = %v, want ErrAPI", err)
	}
	if e, _ := AsError(err); e.Code != 404 || e.Message != "file not found" {
		t.Errorf("error = %+v, want 404 file not found", e)
	}
}

func TestFiles_RequiresID(t *testing.T) {
	client := NewClient("k", WithBaseURL("http://127.0.0.1:0"), WithLogger(discardLogger()))
	if _, err := client.Files.Get(context.Background(), ""); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Get(\"\") = %v, want ErrConfiguration", err)
	}
	if err := client.Transcriptions.Delete(context.Background(), ""); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Delete(\"\") = %v, want ErrConfiguration", err)
	}
}

func TestRequest_AuthHeader(t *testing.T) {
	var auth string
	client := newRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, FileList{})
	}))
	if _, err := client.Files.List(context.Background(), nil); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if auth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer test-key")
	}
}

func TestRequest_Retry(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		retries   int
		wantCalls int32
		wantErr   bool
	}{
		{"503 then ok", []int{503, 200}, 3, 2, false},
		{"429 then ok", []int{429, 429, 200}, 3, 3, false},
		{"400 is not retried", []int{400, 200}, 3, 1, true},
		{"retries exhausted", []int{500, 500, 500, 500}, 2, 3, true},
		{"retries disabled", []int{503, 200}, 0, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				status := tt.statuses[min(int(n), len(tt.statuses))-1]
				if status != http.StatusOK {
					writeJSON(w, status, apiErrorBody{StatusCode: status, Message: "try later"})
					return
				}
				writeJSON(w, http.StatusOK, File{ID: "f"})
			}), WithMaxRetries(tt.retries))

			_, err := client.Files.Get(context.Background(), "f")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Get error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestRequest_DecodeError(t *testing.T) {
	client := newRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	_, err := client.Files.Get(context.Background(), "f")
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("Get = %v, want ErrProtocol", err)
	}
}

func TestTranscriptions_CreateBody(t *testing.T) {
	api := newFakeAPI(t)
	client := newRESTClient(t, api.handler())

	job, err := client.Transcriptions.Create(context.Background(), &CreateTranscriptionRequest{
		AudioURL: "https://example.com/a.mp3",
		Options: &TranscriptionOptions{
			LanguageHints:             []string{"en"},
			EnableSpeakerDiarization:  true,
			EnableTranslation:         true,
			TranslationTargetLanguage: "es",
			WebhookURL:                "https://example.com/hook",
			WebhookAuthHeaderName:     "X-Token",
			WebhookAuthHeaderValue:    "s3cret",
			Cleanup:                   true,
		},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	api.mu.Lock()
	body := api.bodies[job.ID]
	api.mu.Unlock()
	if body.Model != ModelAsync {
		t.Errorf("model = %q, want %q", body.Model, ModelAsync)
	}
	if body.Translation == nil || body.Translation.TargetLanguage != "es" {
		t.Errorf("translation = %+v, want target es", body.Translation)
	}
	if body.WebhookAuthHeaderName != "X-Token" || body.WebhookAuthHeaderValue != "s3cret" {
		t.Errorf("webhook auth = %q/%q", body.WebhookAuthHeaderName, body.WebhookAuthHeaderValue)
	}
}

func TestTranscriptions_CreateValidatesBeforeRequest(t *testing.T) {
	var calls atomic.Int32
	client := newRESTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	_, err := client.Transcriptions.Create(context.Background(), &CreateTranscriptionRequest{
		FileID:  "f",
		Options: &TranscriptionOptions{WebhookURL: "::bad"},
	})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Create = %v, want ErrConfiguration", err)
	}
	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", calls.Load())
	}
}

func TestTranscriptions_Wait(t *testing.T) {
	api := newFakeAPI(t)
	api.pollsToComplete = 3
	client := newRESTClient(t, api.handler())
	ctx := context.Background()

	job, err := client.Transcriptions.Create(ctx, &CreateTranscriptionRequest{AudioURL: "https://example.com/a.mp3"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	var seen []TranscriptionStatus
	done, err := client.Transcriptions.Wait(ctx, job.ID, &WaitOptions{
		OnPoll: func(t *Transcription) { seen = append(seen, t.Status) },
	})
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if done.Status != TranscriptionStatusCompleted {
		t.Errorf("Status = %q, want completed", done.Status)
	}
	if len(seen) != 3 {
		t.Errorf("polled %d times, want 3 (%v)", len(seen), seen)
	}
}

func TestTranscriptions_WaitTimeout(t *testing.T) {
	api := newFakeAPI(t)
	api.pollsToComplete = 1 << 30
	client := newRESTClient(t, api.handler())
	ctx := context.Background()

	job, err := client.Transcriptions.Create(ctx, &CreateTranscriptionRequest{AudioURL: "https://example.com/a.mp3"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	_, err = client.Transcriptions.Wait(ctx, job.ID, &WaitOptions{Timeout: 20 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wait = %v, want ErrTimeout", err)
	}
}

func TestTranscriptions_GetTranscriptMarksFinal(t *testing.T) {
	api := newFakeAPI(t)
	client := newRESTClient(t, api.handler())
	ctx := context.Background()

	job, _ := client.Transcriptions.Create(ctx, &CreateTranscriptionRequest{AudioURL: "https://example.com/a.mp3"})
	client.Transcriptions.Wait(ctx, job.ID, nil)
	tr, err := client.Transcriptions.GetTranscript(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetTranscript error: %v", err)
	}
	for _, tk := range tr.Tokens {
		if !tk.IsFinal {
			t.Errorf("token %q is not final", tk.Text)
		}
	}
}

func TestTranscribeURL(t *testing.T) {
	api := newFakeAPI(t)
	client := newRESTClient(t, api.handler())

	res, err := client.TranscribeURL(context.Background(), "https://example.com/a.mp3", &TranscriptionOptions{
		EnableSpeakerDiarization: true,
	})
	if err != nil {
		t.Fatalf("TranscribeURL error: %v", err)
	}
	if res.Text != "text of https://example.com/a.mp3" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Confidence < 0.69 || res.Confidence > 0.71 {
		t.Errorf("Confidence = %v, want 0.7", res.Confidence)
	}
	if got := res.BySpeaker(); len(got) != 2 {
		t.Errorf("BySpeaker = %v, want 2 speakers", got)
	}
	if res.Transcription.Status != TranscriptionStatusCompleted {
		t.Errorf("Status = %q, want completed", res.Transcription.Status)
	}
}

func TestTranscribeURL_InvalidURL(t *testing.T) {
	client := newRESTClient(t, newFakeAPI(t).handler())
	_, err := client.TranscribeURL(context.Background(), "file:///etc/passwd", nil)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("TranscribeURL = %v, want ErrConfiguration", err)
	}
}

func TestTranscribeFile_Cleanup(t *testing.T) {
	api := newFakeAPI(t)
	client := newRESTClient(t, api.handler())
	path := writeAudio(t, t.TempDir(), "meeting.wav")

	res, err := client.TranscribeFile(context.Background(), path, &TranscriptionOptions{Cleanup: true})
	if err != nil {
		t.Fatalf("TranscribeFile error: %v", err)
	}
	if res.Text != "text of meeting.wav" {
		t.Errorf("Text = %q", res.Text)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.files) != 0 || len(api.jobs) != 0 {
		t.Errorf("left %d files and %d jobs after cleanup", len(api.files), len(api.jobs))
	}
	if len(api.deleted) != 2 {
		t.Errorf("deleted = %v, want job and file", api.deleted)
	}
}

func TestTranscribeFile_JobError(t *testing.T) {
	api := newFakeAPI(t)
	api.failFiles = map[string]bool{"bad.wav": true}
	client := newRESTClient(t, api.handler())
	path := writeAudio(t, t.TempDir(), "bad.wav")

	_, err := client.TranscribeFile(context.Background(), path, nil)
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("TranscribeFile = %v, want ErrAPI", err)
	}
	if !strings.Contains(err.Error(), "unsupported audio") {
		t.Errorf("error = %q, want job error message", err)
	}
}

func TestTranscribeFile_MissingFile(t *testing.T) {
	client := newRESTClient(t, newFakeAPI(t).handler())
	_, err := client.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("TranscribeFile = %v, want os.ErrNotExist", err)
	}
}

func TestTranscribeFiles_PreservesOrder(t *testing.T) {
	api := newFakeAPI(t)
	api.pollsToComplete = 2
	api.failFiles = map[string]bool{"c.wav": true}
	client := newRESTClient(t, api.handler())

	dir := t.TempDir()
	names := []string{"a.wav", "b.wav", "c.wav", "d.wav", "e.wav", "f.wav"}
	var paths []string
	for _, n := range names {
		paths = append(paths, writeAudio(t, dir, n))
	}

	results, err := client.TranscribeFiles(context.Background(), paths, nil, 2)
	if err != nil {
		t.Fatalf("TranscribeFiles error: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("results[%d].Path = %q, want %q", i, r.Path, paths[i])
		}
		if names[i] == "c.wav" {
			if !errors.Is(r.Err, ErrAPI) {
				t.Errorf("results[%d].Err = %v, want ErrAPI", i, r.Err)
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("results[%d].Err = %v", i, r.Err)
			continue
		}
		if want := "text of " + names[i]; r.Result.Text != want {
			t.Errorf("results[%d].Text = %q, want %q", i, r.Result.Text, want)
		}
	}
	if peak := api.peak.Load(); peak > 2 {
		t.Errorf("peak concurrent uploads = %d, want <= 2", peak)
	}
}

func TestTranscribeFiles_InvalidOptions(t *testing.T) {
	client := newRESTClient(t, newFakeAPI(t).handler())
	_, err := client.TranscribeFiles(context.Background(), []string{"a.wav"},
		&TranscriptionOptions{EnableTranslation: true}, 1)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("TranscribeFiles = %v, want ErrConfiguration", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SONIOX_API_KEY", "env-key")
	t.Setenv("SONIOX_API_BASE_URL", "https://example.test")
	client, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}
	if client.config.apiKey != "env-key" || client.config.baseURL != "https://example.test" {
		t.Errorf("config = %q/%q", client.config.apiKey, client.config.baseURL)
	}

	t.Setenv("SONIOX_API_KEY", "")
	if _, err := FromEnv(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("FromEnv without key = %v, want ErrConfiguration", err)
	}
}

func TestNewClient_PanicsWithoutKey(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewClient(\"\") should panic")
		}
	}()
	NewClient("")
}
