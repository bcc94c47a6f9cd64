package download

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

const (
	maxFilenameLen = 200
	maxStemLen     = 150
	maxExtLen      = 16
)

// invalid on Windows filesystems, replaced everywhere for portability
const invalidFilenameChars = `<>:"/\|?*`

// FilenameFromURL derives a safe local filename from a download URL:
// last path segment, percent-decoded, invalid characters replaced,
// and over-long names shortened with a hash suffix so two distinct
// long names cannot collide.
func FilenameFromURL(rawURL string) string {
	name := rawURL
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}

	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}

	name = sanitizeFilename(name)
	if name == "" {
		name = "download"
	}
	return shorten(name)
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFilenameChars, r) {
			return '_'
		}
		return r
	}, name)
}

func shorten(name string) string {
	if len(name) <= maxFilenameLen {
		return name
	}
	ext := path.Ext(name)
	if len(ext) > maxExtLen {
		// not a real extension, keep it in the stem
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)
	sum := md5.Sum([]byte(stem))

	// truncate runes, not bytes: decoded names can carry multibyte
	// characters, and a long extension can leave a short stem
	runes := []rune(stem)
	if len(runes) > maxStemLen {
		runes = runes[:maxStemLen]
	}
	return string(runes) + "_" + hex.EncodeToString(sum[:])[:8] + ext
}
