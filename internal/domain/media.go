package domain

import (
	"mime"
	"path"
	"strings"
)

// DefaultVideoMIME is assumed when nothing better can be determined.
const DefaultVideoMIME = "video/mp4"

// Media holds fetched video content and its normalized content type.
type Media struct {
	Bytes    []byte
	MimeType string
}

// Size returns the payload size in bytes.
func (m *Media) Size() int64 {
	return int64(len(m.Bytes))
}

// NormalizeMIMEType reduces a raw Content-Type header to a canonical media
// type: parameters stripped, lowercased. An absent, malformed, or generic
// octet-stream type falls back to a type guessed from the URL's file
// extension, then to DefaultVideoMIME. The function is pure and idempotent.
func NormalizeMIMEType(raw, url string) string {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		if guessed := guessFromURL(url); guessed != "" {
			return guessed
		}
		return DefaultVideoMIME
	}
	return strings.ToLower(mt)
}

func guessFromURL(url string) string {
	// Drop query/fragment before looking at the extension.
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	switch strings.ToLower(path.Ext(url)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	}
	return ""
}

// IsVideoMIME reports whether a normalized media type is a video type.
func IsVideoMIME(mt string) bool {
	return strings.HasPrefix(mt, "video/")
}

// IsConclusivelyNotVideo reports whether a normalized media type can only be
// a non-video payload. CDNs frequently serve HTML or JSON error pages with a
// 200 status; these declared types are rejected outright.
func IsConclusivelyNotVideo(mt string) bool {
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	switch mt {
	case "application/json", "application/xml", "application/xhtml+xml", "application/pdf":
		return true
	}
	return false
}
