package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/model"
)

const (
	maxWordsPerCue   = 8
	maxCueSeconds    = 4.0
	sentenceEndChars = ".!?"
)

// CaptionService transcribes the voiceover with ElevenLabs Scribe
type CaptionService struct {
	elevenLabs *client.ElevenLabsClient
}

func NewCaptionService(elevenLabs *client.ElevenLabsClient) *CaptionService {
	return &CaptionService{elevenLabs: elevenLabs}
}

func (s *CaptionService) TranscribeCaptions(ctx context.Context, audio *model.AudioArtifact) (*model.CaptionArtifact, error) {
	if !s.elevenLabs.IsConfigured() {
		slog.Warn("ELEVENLABS_API_KEY missing, returning mock captions")
		return mockCaptions(), nil
	}
	if audio == nil || !isFetchable(audio.VoiceoverURL) {
		slog.Warn("voiceover is not reachable over HTTP, returning mock captions")
		return mockCaptions(), nil
	}

	tr, err := s.elevenLabs.SpeechToText(ctx, audio.VoiceoverURL)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	words := make([]model.CaptionWord, 0, len(tr.Words))
	for _, w := range tr.Words {
		if w.Type != "" && w.Type != "word" {
			continue
		}
		words = append(words, model.CaptionWord{Text: w.Text, Start: w.Start, End: w.End})
	}

	transcript := strings.TrimSpace(tr.Text)
	if transcript == "" {
		transcript = joinWords(words)
	}

	return &model.CaptionArtifact{
		Transcript: transcript,
		SRT:        buildSRT(words),
		Words:      words,
	}, nil
}

func isFetchable(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// buildSRT groups timed words into numbered cues. A cue closes on sentence end,
// after maxWordsPerCue words or once it spans maxCueSeconds.
func buildSRT(words []model.CaptionWord) string {
	var b strings.Builder
	cue := 0
	var group []model.CaptionWord

	flush := func() {
		if len(group) == 0 {
			return
		}
		cue++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue, srtTimestamp(group[0].Start), srtTimestamp(group[len(group)-1].End), joinWords(group))
		group = group[:0]
	}

	for _, w := range words {
		group = append(group, w)
		text := strings.TrimSpace(w.Text)
		endsSentence := text != "" && strings.ContainsRune(sentenceEndChars, rune(text[len(text)-1]))
		if endsSentence || len(group) >= maxWordsPerCue || w.End-group[0].Start >= maxCueSeconds {
			flush()
		}
	}
	flush()

	return strings.TrimSuffix(b.String(), "\n")
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	sec := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, sec, ms%1000)
}

func joinWords(words []model.CaptionWord) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.TrimSpace(w.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
