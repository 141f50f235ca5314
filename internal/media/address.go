// Package media maps local files to media:/// addresses and serves them
// over HTTP with byte-range support.
package media

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Scheme is the address scheme for local media
const Scheme = "media"

var driveLetter = regexp.MustCompile(`^/+[A-Za-z]:`)

// Encode turns a local path into a media:/// address. Separators become
// forward slashes and every segment is percent-encoded except ones that
// contain a colon, so drive letters stay readable.
func Encode(p string) string {
	parts := strings.Split(strings.ReplaceAll(p, `\`, "/"), "/")
	for i, part := range parts {
		if strings.Contains(part, ":") {
			continue
		}
		parts[i] = url.PathEscape(part)
	}
	return Scheme + ":///" + strings.Join(parts, "/")
}

// Resolve turns a media:// address back into a local path. When windows is
// set a single-letter host is read as a drive letter and separators become
// backslashes. Addresses that do not parse are decoded by hand.
func Resolve(raw string, windows bool) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != Scheme {
		rest := strings.TrimPrefix(raw, Scheme+"://")
		return normalize(unescape(rest), windows)
	}

	p := u.Path
	if windows && len(u.Host) == 1 {
		p = u.Host + ":" + p
	}
	return normalize(p, windows)
}

// ResolvePath is Resolve for the path part of an address, as seen by the
// HTTP server under /media/.
func ResolvePath(raw string, windows bool) string {
	p, err := url.PathUnescape(raw)
	if err != nil {
		p = unescape(raw)
	}
	return normalize(p, windows)
}

func normalize(p string, windows bool) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if windows {
		if driveLetter.MatchString(p) {
			p = strings.TrimLeft(p, "/")
		}
		p = path.Clean(p)
		return strings.ReplaceAll(p, "/", `\`)
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return filepath.FromSlash(path.Clean(p))
}

// unescape decodes the %XX sequences that are valid and keeps the rest as is
func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
