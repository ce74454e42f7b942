package audio

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

// TimestampSafe renders a UTC timestamp with colons replaced so it is
// usable in filenames on every filesystem.
func TimestampSafe(t time.Time) string {
	return strings.ReplaceAll(t.UTC().Format("2006-01-02T15:04:05Z"), ":", "-")
}

// Filename is the plain audio artifact name for a chunk interval.
func Filename(start time.Time) string {
	return TimestampSafe(start) + ".wav"
}

// MetadataFilename is the sibling JSON name for a chunk number.
func MetadataFilename(chunkNumber int) string {
	return fmt.Sprintf("chunk_%03d.json", chunkNumber)
}

// RichFilename encodes the chunk number, bot presence, and up to three
// participant tokens into the audio name:
// chunk_{NNN}_{bot|nobot}_{tokens}_{ts}.wav. Each token is the first
// ten letters of a non-bot participant's name, lowercased.
func RichFilename(chunkNumber int, participants []protocol.ParticipantSnapshot, start time.Time) string {
	botPresent := false
	var tokens []string
	for _, p := range participants {
		if p.IsBot {
			botPresent = true
			continue
		}
		if len(tokens) >= 3 {
			continue
		}
		if tok := nameToken(p.Name); tok != "" {
			tokens = append(tokens, tok)
		}
	}

	botTok := "nobot"
	if botPresent {
		botTok = "bot"
	}

	parts := []string{fmt.Sprintf("chunk_%03d", chunkNumber), botTok}
	parts = append(parts, tokens...)
	parts = append(parts, TimestampSafe(start))
	return strings.Join(parts, "_") + ".wav"
}

func nameToken(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
			if b.Len() >= 10 {
				break
			}
		}
	}
	return b.String()
}
