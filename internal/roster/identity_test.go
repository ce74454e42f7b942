package roster

import "testing"

func TestResolverIsBot(t *testing.T) {
	r := NewResolver([]string{"Meeting Bot", "bot", "recorder@example.com"})

	tests := []struct {
		name     string
		entry    Entry
		detected string
		want     bool
	}{
		{"extractor flag", Entry{Name: "Whoever", IsBot: true}, "", true},
		{"you suffix in original", Entry{Name: "Alice", OriginalName: "Alice (You)"}, "", true},
		{"detected self name", Entry{Name: "MW Recorder"}, "MW Recorder", true},
		{"exact identifier", Entry{Name: "Meeting Bot"}, "", true},
		{"exact identifier case", Entry{Name: "MEETING BOT"}, "", true},
		{"substring overlap", Entry{Name: "Meeting Bot 2"}, "", true},
		{"plain human", Entry{Name: "Alice Nguyen"}, "", false},
		{"short id no overlap", Entry{Name: "Abbot Costello"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.IsBot(tt.entry, tt.detected); got != tt.want {
				t.Errorf("IsBot(%+v, %q) = %v, want %v", tt.entry, tt.detected, got, tt.want)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"meeting bot 2", "meeting bot", true}, // contains, 11*2 >= 13
		{"bot", "meeting bot", false},          // contained, but 3*2 < 11
		{"ab", "a", false},                     // id shorter than 3
		{"meeting bot", "meeting bot", true},
	}

	for _, tt := range tests {
		if got := overlaps(tt.name, tt.id); got != tt.want {
			t.Errorf("overlaps(%q, %q) = %v, want %v", tt.name, tt.id, got, tt.want)
		}
	}
}
