// Package scrape implements the resilient content-acquisition subsystem: a
// headless-browser strategy, a direct HTTP strategy with encoding recovery,
// and the fallback orchestration between them.
package scrape

import (
	"mime"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// metaScanWindow bounds how much of the body is scanned for <meta> charset
// hints when the Content-Type header carries none.
const metaScanWindow = 2048

// Sources an encoding decision can come from, in priority order.
const (
	encodingSourceHeader      = "header"
	encodingSourceMetaCharset = "meta-charset"
	encodingSourceMetaContent = "meta-content"
	encodingSourceDefault     = "default"
)

const defaultEncoding = "utf-8"

var (
	metaCharsetRe = regexp.MustCompile(`(?i)<meta\s+[^>]*charset=["']?([a-zA-Z0-9\-_]+)`)
	metaContentRe = regexp.MustCompile(`(?i)<meta\s+[^>]*content=["'][^"']*charset=([^"';\s]+)`)
)

// encodingAliases collapses the charset spellings seen in the wild for the
// Japanese encodings this service cares about.
var encodingAliases = map[string]string{
	"sjis":        "shift_jis",
	"shift-jis":   "shift_jis",
	"shift_jis":   "shift_jis",
	"windows-31j": "shift_jis",
	"euc-jp":      "euc-jp",
}

// encodingDecision records the resolved charset and where it came from.
type encodingDecision struct {
	name   string
	source string
}

// resolveEncoding determines the charset of an HTML document, in strict
// priority order: Content-Type header, <meta charset>, <meta content=...
// charset=...>, then the UTF-8 default.
func resolveEncoding(body []byte, header http.Header) encodingDecision {
	if name := charsetFromContentType(header.Get("Content-Type")); name != "" {
		return encodingDecision{name: normalizeEncoding(name), source: encodingSourceHeader}
	}

	window := headWindow(body)
	if m := metaCharsetRe.FindStringSubmatch(window); m != nil {
		return encodingDecision{name: normalizeEncoding(m[1]), source: encodingSourceMetaCharset}
	}
	if m := metaContentRe.FindStringSubmatch(window); m != nil {
		return encodingDecision{name: normalizeEncoding(m[1]), source: encodingSourceMetaContent}
	}

	return encodingDecision{name: defaultEncoding, source: encodingSourceDefault}
}

// DecodeHTML decodes raw response bytes to a string using the resolved
// charset. It never fails: unknown or unsupported encodings fall back to
// interpreting the bytes as UTF-8.
func DecodeHTML(body []byte, header http.Header) string {
	decision := resolveEncoding(body, header)
	enc, err := htmlindex.Get(decision.name)
	if err != nil || enc == nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func charsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := params["charset"]; cs != "" {
			return strings.TrimSpace(cs)
		}
		return ""
	}
	// Malformed Content-Type values still often carry a usable charset param.
	if idx := strings.Index(strings.ToLower(contentType), "charset="); idx >= 0 {
		cs := contentType[idx+len("charset="):]
		if semi := strings.IndexByte(cs, ';'); semi >= 0 {
			cs = cs[:semi]
		}
		return strings.TrimSpace(cs)
	}
	return ""
}

func normalizeEncoding(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := encodingAliases[name]; ok {
		return canonical
	}
	if _, err := htmlindex.Get(name); err != nil {
		return defaultEncoding
	}
	return name
}

// headWindow returns the first metaScanWindow bytes as a string. The meta
// patterns are pure ASCII, so a byte-for-byte view is safe for any charset.
func headWindow(body []byte) string {
	n := len(body)
	if n > metaScanWindow {
		n = metaScanWindow
	}
	return string(body[:n])
}
