package media

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`C:\Users\me\My Clip.mp4`, "media:///C:/Users/me/My%20Clip.mp4"},
		{"/home/me/a#b.mp4", "media:////home/me/a%23b.mp4"},
	}
	for _, tt := range tests {
		if got := Encode(tt.in); got != tt.want {
			t.Errorf("Encode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		windows bool
	}{
		{"unix", "/home/me/videos/My Clip (final).mp4", false},
		{"unix percent", "/tmp/100% real?.mov", false},
		{"drive", `C:\Users\me\Videos\clip #1.mp4`, true},
		{"drive lower", `d:\media\a.wav`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(Encode(tt.path), tt.windows)
			if got != tt.path {
				t.Errorf("round trip: got %q, want %q", got, tt.path)
			}
		})
	}
}

func TestResolveDriveHost(t *testing.T) {
	if got := Resolve("media://c/Users/me/a.mp4", true); got != `c:\Users\me\a.mp4` {
		t.Errorf("single-letter host should be a drive, got %q", got)
	}
	if got := Resolve("media:///C:/Users/me/a.mp4", true); got != `C:\Users\me\a.mp4` {
		t.Errorf("leading slash before a drive should be stripped, got %q", got)
	}
}

func TestResolveMalformedFallsBack(t *testing.T) {
	got := Resolve("media:///tmp/50%zz/a%20b.mp4", false)
	if got != "/tmp/50%zz/a b.mp4" {
		t.Errorf("expected best-effort decode, got %q", got)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		header     string
		size       int64
		start, end int64
		err        bool
	}{
		{"", 1000, 0, 999, false},
		{"bytes=0-", 1000, 0, 999, false},
		{"bytes=500-1499", 2000, 500, 1499, false},
		{"bytes=500-1499", 1500, 500, 1499, false},
		{"bytes=500-1499", 1200, 500, 1199, false},
		{"bytes=-100", 1000, 900, 999, false},
		{"bytes=-5000", 1000, 0, 999, false},
		{"bytes=900-5000", 1000, 900, 999, false},
		{"bytes=10-20,30-40", 1000, 10, 20, false},
		{"bytes=2000-", 1000, 0, 0, true},
		{"bytes=50-10", 1000, 0, 0, true},
		{"bytes=-0", 1000, 0, 0, true},
	}
	for _, tt := range tests {
		r, err := ParseRange(tt.header, tt.size, MaxChunk)
		if tt.err {
			if !errors.Is(err, ErrRangeNotSatisfiable) {
				t.Errorf("%q: expected not satisfiable, got %+v", tt.header, r)
			}
			continue
		}
		if err != nil || r.Start != tt.start || r.End != tt.end {
			t.Errorf("%q: got %+v %v, want %d-%d", tt.header, r, err, tt.start, tt.end)
		}
	}
}

func TestParseRangeCapsChunk(t *testing.T) {
	size := int64(200 * 1024 * 1024)
	r, err := ParseRange("bytes=0-", size, MaxChunk)
	if err != nil {
		t.Fatal(err)
	}
	if r.Length() != MaxChunk {
		t.Errorf("expected a %d byte chunk, got %d", MaxChunk, r.Length())
	}
	if r.ContentRange() != "bytes 0-52428799/209715200" {
		t.Errorf("unexpected content range %s", r.ContentRange())
	}

	if r, _ := ParseRange("", size, MaxChunk); !r.Full() {
		t.Error("requests without a range are never capped")
	}
}

func writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func get(t *testing.T, s *Server, path, rangeHeader string) (*http.Response, []byte) {
	t.Helper()
	target := "/media/" + strings.TrimPrefix(Encode(path), Scheme+":///")
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func TestServeRanges(t *testing.T) {
	s := NewServer(zerolog.Nop(), ServerConfig{})
	small := writeFile(t, "small clip.mp4", 1000)
	big := writeFile(t, "big.mp4", 2000)

	resp, body := get(t, s, small, "bytes=0-")
	if resp.StatusCode != http.StatusOK || len(body) != 1000 {
		t.Errorf("bytes=0-: got %d with %d bytes", resp.StatusCode, len(body))
	}
	if resp.Header.Get("Accept-Ranges") != "bytes" {
		t.Error("expected Accept-Ranges header")
	}

	resp, body = get(t, s, big, "bytes=500-1499")
	if resp.StatusCode != http.StatusPartialContent || len(body) != 1000 {
		t.Errorf("bytes=500-1499: got %d with %d bytes", resp.StatusCode, len(body))
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 500-1499/2000" {
		t.Errorf("unexpected Content-Range %q", got)
	}
	if len(body) > 0 && body[0] != byte(500%251) {
		t.Errorf("body starts at the wrong offset: %d", body[0])
	}

	// span ending on the last byte of the file
	exact := writeFile(t, "exact.mp4", 1500)
	resp, body = get(t, s, exact, "bytes=500-1499")
	if resp.StatusCode != http.StatusPartialContent || len(body) != 1000 {
		t.Errorf("bytes=500-1499 of 1500: got %d with %d bytes", resp.StatusCode, len(body))
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 500-1499/1500" {
		t.Errorf("unexpected Content-Range %q", got)
	}

	resp, _ = get(t, s, small, "bytes=2000-")
	if resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("expected 416, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes */1000" {
		t.Errorf("unexpected Content-Range %q", got)
	}

	resp, body = get(t, s, small, "")
	if resp.StatusCode != http.StatusOK || len(body) != 1000 {
		t.Errorf("no range: got %d with %d bytes", resp.StatusCode, len(body))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected a request id")
	}
}

func TestServeMissingAndEmpty(t *testing.T) {
	s := NewServer(zerolog.Nop(), ServerConfig{})

	resp, body := get(t, s, filepath.Join(t.TempDir(), "nope.mp4"), "")
	if resp.StatusCode != http.StatusNotFound || string(body) != "File not found" {
		t.Errorf("missing file: %d %q", resp.StatusCode, body)
	}

	empty := writeFile(t, "empty.mp4", 0)
	resp, body = get(t, s, empty, "")
	if resp.StatusCode != http.StatusNotFound || string(body) != "File is empty" {
		t.Errorf("empty file: %d %q", resp.StatusCode, body)
	}
}

func TestServeCapsChunk(t *testing.T) {
	s := NewServer(zerolog.Nop(), ServerConfig{MaxChunk: 100})
	p := writeFile(t, "a.mp4", 1000)

	resp, body := get(t, s, p, "bytes=0-")
	if resp.StatusCode != http.StatusPartialContent || len(body) != 100 {
		t.Errorf("expected a capped 206, got %d with %d bytes", resp.StatusCode, len(body))
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 0-99/1000" {
		t.Errorf("unexpected Content-Range %q", got)
	}
}

func TestHealth(t *testing.T) {
	s := NewServer(zerolog.Nop(), ServerConfig{})
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("health check failed: %v %v", resp, err)
	}
}
