package playlist

import (
	"strings"
	"testing"
)

func TestParseBasicEntries(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-id="cnn.us" group-title="News",CNN
http://x/s/1
#EXTINF:-1,Other
http://x/s/2
`
	entries, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].TvgID != "cnn.us" || entries[0].GroupTitle != "News" || entries[0].DisplayName != "CNN" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[0].StreamURL != "http://x/s/1" {
		t.Errorf("entry 0 url = %q", entries[0].StreamURL)
	}
	if entries[1].DisplayName != "Other" {
		t.Errorf("entry 1 display name = %q", entries[1].DisplayName)
	}
}

func TestParseAttributesAreCaseInsensitive(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 TVG-ID="cnn.us" Group-Title="News" tvg-logo="http://p/cnn.png",CNN
http://x/s/1
`
	entries, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if entries[0].TvgID != "cnn.us" || entries[0].GroupTitle != "News" || entries[0].TvgLogo != "http://p/cnn.png" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestParseExplicitGroupOverridesAttribute(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 group-title="Attribute Group",CNN
#EXTGRP:Explicit Group
http://x/s/1
`
	entries, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if entries[0].GroupTitle != "Explicit Group" {
		t.Errorf("GroupTitle = %q, want override", entries[0].GroupTitle)
	}
}

func TestParseDisplayNameFallbackChain(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"trailing label wins", `#EXTINF:-1 tvg-name="Fallback Name",Trailing Label`, "Trailing Label"},
		{"falls back to tvg-name", `#EXTINF:-1 tvg-name="Fallback Name",`, "Fallback Name"},
		{"whitespace label treated as absent", `#EXTINF:-1 tvg-name="Fallback Name",   `, "Fallback Name"},
		{"falls back to default", `#EXTINF:-1,`, "Unnamed Channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "#EXTM3U\n" + tt.line + "\nhttp://x/s/1\n"
			entries, err := Parse(strings.NewReader(input))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if entries[0].DisplayName != tt.want {
				t.Errorf("DisplayName = %q, want %q", entries[0].DisplayName, tt.want)
			}
		})
	}
}

func TestParseAssignsContentType(t *testing.T) {
	input := "#EXTM3U\n#EXTINF:-1,Movie\nhttp://p/movies/1.mkv\n"
	entries, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if entries[0].ContentType != VOD {
		t.Errorf("ContentType = %v, want vod", entries[0].ContentType)
	}
}

func TestParseMissingHeaderAndNoEntries(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	if err == nil {
		t.Fatal("expected error for empty playlist without header")
	}
}
