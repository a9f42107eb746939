package soniox

// UnknownSpeaker is the key used for tokens without a speaker label.
const UnknownSpeaker = "unknown"

func speakerOf(t Token) string {
	if t.Speaker == "" {
		return UnknownSpeaker
	}
	return t.Speaker
}

// GroupBySpeaker folds tokens into a map from speaker to that speaker's
// tokens in transcript order. The result is rebuilt on every call.
func GroupBySpeaker(tokens []Token) map[string][]Token {
	groups := make(map[string][]Token)
	for _, t := range tokens {
		sp := speakerOf(t)
		groups[sp] = append(groups[sp], t)
	}
	return groups
}

// Speakers returns the distinct speakers in order of first appearance.
func Speakers(tokens []Token) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tokens {
		sp := speakerOf(t)
		if !seen[sp] {
			seen[sp] = true
			out = append(out, sp)
		}
	}
	return out
}

// Turn is a run of consecutive tokens from one speaker.
type Turn struct {
	Speaker string  `json:"speaker" yaml:"speaker"`
	Text    string  `json:"text" yaml:"text"`
	StartMs int64   `json:"start_ms" yaml:"start_ms"`
	EndMs   int64   `json:"end_ms" yaml:"end_ms"`
	Tokens  []Token `json:"-" yaml:"-"`
}

// SpeakerTurns splits tokens into turns at every speaker change.
func SpeakerTurns(tokens []Token) []Turn {
	var turns []Turn
	for _, t := range tokens {
		sp := speakerOf(t)
		if n := len(turns); n > 0 && turns[n-1].Speaker == sp {
			last := &turns[n-1]
			last.Tokens = append(last.Tokens, t)
			last.Text += t.Text
			last.EndMs = max(last.EndMs, t.EndMs)
			continue
		}
		turns = append(turns, Turn{
			Speaker: sp,
			Text:    t.Text,
			StartMs: t.StartMs,
			EndMs:   t.EndMs,
			Tokens:  []Token{t},
		})
	}
	return turns
}
