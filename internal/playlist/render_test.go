package playlist

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderProducesExpectedStanzas(t *testing.T) {
	entries := []RenderEntry{
		{StreamKey: "abc123", DisplayName: "CNN", TvgID: "cnn.us", GroupTitle: "News", TvgChno: 1},
		{StreamKey: "def456", DisplayName: "BBC", GroupTitle: "News"},
	}
	var buf bytes.Buffer
	if err := Render(&buf, entries, "https://lineup.example", "https://lineup.example/m3undle/guide.xml"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"#EXTM3U",
		`url-tvg="https://lineup.example/m3undle/guide.xml"`,
		`tvg-chno="1"`,
		`tvg-id="cnn.us"`,
		`group-title="News"`,
		",CNN",
		"https://lineup.example/stream/abc123",
		",BBC",
		"https://lineup.example/stream/def456",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRenderTvgNameFallsBackToDisplayName(t *testing.T) {
	entries := []RenderEntry{{StreamKey: "a", DisplayName: "CNN"}}
	var buf bytes.Buffer
	if err := Render(&buf, entries, "https://lineup.example", "https://lineup.example/m3undle/guide.xml"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), `tvg-name="CNN"`) {
		t.Errorf("expected tvg-name fallback, got %s", buf.String())
	}
}
