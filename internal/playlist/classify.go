package playlist

import (
	"net/url"
	"path"
	"strings"
)

var (
	liveExtensions = map[string]bool{
		".ts": true, ".m3u8": true, ".m2ts": true, ".mts": true,
	}
	vodExtensions = map[string]bool{
		".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".wmv": true,
		".flv": true, ".webm": true, ".m4v": true, ".mpg": true, ".mpeg": true,
		".3gp": true,
	}
)

// Classify derives a stream's content type purely from its URL. It is a
// pure function: the same input always yields the same output, and it has
// no dependency on parsing or catalog state.
func Classify(streamURL string) ContentType {
	u, err := url.Parse(streamURL)
	if err != nil {
		return classifyRaw(streamURL)
	}

	if ct, ok := classifyPathSegments(u.Path); ok {
		return ct
	}
	if ct, ok := classifyQuery(u.Query()); ok {
		return ct
	}
	if ct, ok := classifyExtension(u.Path); ok {
		return ct
	}
	return Live
}

func classifyRaw(raw string) ContentType {
	if ct, ok := classifyPathSegments(raw); ok {
		return ct
	}
	if ct, ok := classifyExtension(raw); ok {
		return ct
	}
	return Live
}

func classifyPathSegments(p string) (ContentType, bool) {
	for _, seg := range strings.Split(p, "/") {
		switch strings.ToLower(seg) {
		case "live":
			return Live, true
		case "series":
			return Series, true
		case "movie", "movies", "vod":
			return VOD, true
		}
	}
	return "", false
}

func classifyQuery(q url.Values) (ContentType, bool) {
	val := q.Get("type")
	if val == "" {
		val = q.Get("kind")
	}
	switch strings.ToLower(val) {
	case "live":
		return Live, true
	case "series":
		return Series, true
	case "vod", "movie":
		return VOD, true
	}
	return "", false
}

func classifyExtension(p string) (ContentType, bool) {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return "", false
	}
	if liveExtensions[ext] {
		return Live, true
	}
	if vodExtensions[ext] {
		return VOD, true
	}
	return "", false
}
