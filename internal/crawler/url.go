package crawler

import (
	"net/url"
	"path"
	"strings"
)

// mediaExtensions lists path extensions of binary payloads that are never
// worth fetching.
var mediaExtensions = map[string]struct{}{
	".wav": {},
	".mp3": {},
	".bmp": {},
	".gif": {},
	".jpg": {},
	".png": {},
	".mp4": {},
}

// IsCrawlable reports whether rawURL is an absolute, network-addressable URL
// whose path does not point at a denylisted media file.
func IsCrawlable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme == "" || u.Host == "" {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	_, denied := mediaExtensions[ext]
	return !denied
}
