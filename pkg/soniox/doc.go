// Package soniox provides a Go client for the Soniox Speech-to-Text APIs.
//
// It covers file and URL transcription through asynchronous jobs and
// real-time transcription over a websocket session.
//
// # Quick Start
//
//	client := soniox.NewClient("your-api-key")
//	result, err := client.TranscribeFile(ctx, "meeting.mp3", &soniox.TranscriptionOptions{
//	    EnableSpeakerDiarization: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Text)
//
// # Real-time Sessions
//
// A session reads audio from an AudioSource and produces StreamUpdates.
// Confirmed tokens never change; pending tokens are replaced by every update.
//
//	src := soniox.NewPushSource()
//	session, err := client.Stream.Open(ctx, &soniox.SessionConfig{
//	    SampleRate: 16000,
//	}, src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	go func() {
//	    for chunk := range mic {
//	        src.Push(chunk)
//	    }
//	    src.CloseWrite()
//	}()
//
//	for update, err := range session.Updates() {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Print(update.Text())
//	}
//	fmt.Println(session.Transcript().ConfirmedText())
//
// # Errors
//
// All errors are *Error values classified by Kind. Use errors.Is with the
// sentinels to branch on the class:
//
//	if errors.Is(err, soniox.ErrCancelled) {
//	    return
//	}
//
// REST calls retry connection failures, 429 and 5xx responses with
// exponential backoff. Sessions are never retried; open a new one instead.
package soniox
