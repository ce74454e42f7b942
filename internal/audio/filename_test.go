package audio

import (
	"testing"
	"time"

	"github.com/nextlevelbuilder/meetwatch/pkg/protocol"
)

var chunkStart = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func TestTimestampSafe(t *testing.T) {
	got := TimestampSafe(chunkStart)
	want := "2026-03-14T15-09-26Z"
	if got != want {
		t.Errorf("TimestampSafe = %q, want %q", got, want)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(chunkStart); got != "2026-03-14T15-09-26Z.wav" {
		t.Errorf("Filename = %q", got)
	}
	if got := MetadataFilename(7); got != "chunk_007.json" {
		t.Errorf("MetadataFilename = %q", got)
	}
}

func TestRichFilename(t *testing.T) {
	tests := []struct {
		name         string
		participants []protocol.ParticipantSnapshot
		want         string
	}{
		{
			"bot and two humans",
			[]protocol.ParticipantSnapshot{
				{Name: "Meeting Bot", IsBot: true},
				{Name: "Alice Nguyen"},
				{Name: "Bob Tran"},
			},
			"chunk_002_bot_alicenguye_bobtran_2026-03-14T15-09-26Z.wav",
		},
		{
			"no bot",
			[]protocol.ParticipantSnapshot{{Name: "Alice"}},
			"chunk_002_nobot_alice_2026-03-14T15-09-26Z.wav",
		},
		{
			"empty roster",
			nil,
			"chunk_002_nobot_2026-03-14T15-09-26Z.wav",
		},
		{
			"token cap at three",
			[]protocol.ParticipantSnapshot{
				{Name: "Ann"}, {Name: "Ben"}, {Name: "Cat"}, {Name: "Dan"},
			},
			"chunk_002_nobot_ann_ben_cat_2026-03-14T15-09-26Z.wav",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RichFilename(2, tt.participants, chunkStart); got != tt.want {
				t.Errorf("RichFilename = %q, want %q", got, tt.want)
			}
		})
	}
}
