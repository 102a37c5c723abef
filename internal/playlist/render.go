package playlist

import (
	"bufio"
	"fmt"
	"io"
)

// Render writes the client-facing extended-M3U playlist: one leading header
// carrying the guide URL, then one #EXTINF stanza per entry pointing at the
// relay's stream endpoint. Output is UTF-8 with LF line endings.
func Render(w io.Writer, entries []RenderEntry, baseURL, guideURL string) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "#EXTM3U url-tvg=\"%s\" x-tvg-url=\"%s\"\n", guideURL, guideURL); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeStanza(bw, e, baseURL); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeStanza(w *bufio.Writer, e RenderEntry, baseURL string) error {
	tvgName := e.TvgName
	if tvgName == "" {
		tvgName = e.DisplayName
	}

	if _, err := fmt.Fprintf(w, "#EXTINF:-1"); err != nil {
		return err
	}
	if e.TvgChno > 0 {
		if _, err := fmt.Fprintf(w, ` tvg-chno="%d"`, e.TvgChno); err != nil {
			return err
		}
	}
	if e.TvgID != "" {
		if _, err := fmt.Fprintf(w, ` tvg-id="%s"`, e.TvgID); err != nil {
			return err
		}
	}
	if tvgName != "" {
		if _, err := fmt.Fprintf(w, ` tvg-name="%s"`, tvgName); err != nil {
			return err
		}
	}
	if e.TvgLogo != "" {
		if _, err := fmt.Fprintf(w, ` tvg-logo="%s"`, e.TvgLogo); err != nil {
			return err
		}
	}
	if e.GroupTitle != "" {
		if _, err := fmt.Fprintf(w, ` group-title="%s"`, e.GroupTitle); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, ",%s\n", e.DisplayName); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s/stream/%s\n", baseURL, e.StreamKey)
	return err
}
