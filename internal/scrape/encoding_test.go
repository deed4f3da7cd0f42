package scrape

import (
	"net/http"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
)

func TestResolveEncodingHeaderWins(t *testing.T) {
	t.Parallel()

	header := http.Header{"Content-Type": {"text/html; charset=Shift_JIS"}}
	body := []byte(`<html><head><meta charset="euc-jp"></head><body></body></html>`)

	decision := resolveEncoding(body, header)
	if decision.name != "shift_jis" || decision.source != encodingSourceHeader {
		t.Fatalf("expected shift_jis from header, got %+v", decision)
	}
}

func TestResolveEncodingMetaCharset(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><head><meta charset="euc-jp"></head><body></body></html>`)

	decision := resolveEncoding(body, http.Header{})
	if decision.name != "euc-jp" || decision.source != encodingSourceMetaCharset {
		t.Fatalf("expected euc-jp from meta charset, got %+v", decision)
	}
}

func TestResolveEncodingMetaContent(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><head><meta http-equiv="Content-Type" content="text/html; charset=euc-jp"></head></html>`)

	decision := resolveEncoding(body, http.Header{})
	if decision.name != "euc-jp" {
		t.Fatalf("expected euc-jp from meta content, got %+v", decision)
	}
}

func TestResolveEncodingMetaBeyondWindowIgnored(t *testing.T) {
	t.Parallel()

	padding := strings.Repeat(" ", metaScanWindow)
	body := []byte("<html><head>" + padding + `<meta charset="euc-jp"></head></html>`)

	decision := resolveEncoding(body, http.Header{})
	if decision.name != defaultEncoding || decision.source != encodingSourceDefault {
		t.Fatalf("expected default when meta is outside scan window, got %+v", decision)
	}
}

func TestResolveEncodingDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header http.Header
		body   string
	}{
		{"no hints", http.Header{}, "<html><body>plain</body></html>"},
		{
			"unknown charset",
			http.Header{"Content-Type": {"text/html; charset=definitely-not-real"}},
			"<html></html>",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			decision := resolveEncoding([]byte(tt.body), tt.header)
			if decision.name != defaultEncoding {
				t.Fatalf("expected utf-8 fallback, got %+v", decision)
			}
		})
	}
}

func TestNormalizeEncodingAliases(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"sjis":        "shift_jis",
		"SJIS":        "shift_jis",
		"Shift-JIS":   "shift_jis",
		"shift_jis":   "shift_jis",
		"windows-31j": "shift_jis",
		"euc-jp":      "euc-jp",
		"UTF-8":       "utf-8",
		"bogus-9000":  defaultEncoding,
	}
	for input, want := range tests {
		if got := normalizeEncoding(input); got != want {
			t.Errorf("normalizeEncoding(%q) = %q; want %q", input, got, want)
		}
	}
}

func TestDecodeHTMLShiftJIS(t *testing.T) {
	t.Parallel()

	const want = "空気清浄機のおすすめ"
	raw, err := japanese.ShiftJIS.NewEncoder().String(want)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	header := http.Header{"Content-Type": {"text/html; charset=Shift_JIS"}}
	got := DecodeHTML([]byte(raw), header)
	if got != want {
		t.Fatalf("DecodeHTML = %q; want %q", got, want)
	}
}

func TestDecodeHTMLEUCJPFromMeta(t *testing.T) {
	t.Parallel()

	const text = "加湿器と空気清浄機"
	page := `<html><head><meta charset="euc-jp"></head><body>` + text + "</body></html>"
	raw, err := japanese.EUCJP.NewEncoder().String(page)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	got := DecodeHTML([]byte(raw), http.Header{})
	if !strings.Contains(got, text) {
		t.Fatalf("expected decoded body to contain %q, got %q", text, got)
	}
}

func TestDecodeHTMLNeverFails(t *testing.T) {
	t.Parallel()

	// Invalid UTF-8 bytes still come back as a string.
	body := []byte{0xff, 0xfe, 0xfd}
	if got := DecodeHTML(body, http.Header{}); got == "" {
		t.Fatal("expected non-empty result for undecodable bytes")
	}
}
