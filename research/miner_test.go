package research

import (
	"strings"
	"testing"
	"unicode/utf8"

	"indofakta-pipeline/types"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "markdown links removed",
			in:   "Lihat [artikel ini](https://example.com) untuk detail.",
			want: "Lihat untuk detail.",
		},
		{
			name: "raw urls removed",
			in:   "Sumber: https://id.wikipedia.org/wiki/Madu basi.",
			want: "Sumber: basi.",
		},
		{
			name: "wikipedia refs removed",
			in:   "Madu tidak basi[1] karena pH rendah[23].",
			want: "Madu tidak basi karena pH rendah.",
		},
		{
			name: "whitespace normalized",
			in:   "Fakta   menarik\n\ntentang\tgurita",
			want: "Fakta menarik tentang gurita",
		},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("%s: CleanText(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestCleanTextKeepsIndonesianText(t *testing.T) {
	in := "Tahukah kamu, gurita punya tiga jantung?"
	if got := CleanText(in); got != in {
		t.Errorf("CleanText mangled plain text: %q", got)
	}
}

func TestTruncateOnRune(t *testing.T) {
	// "é" is 2 bytes; a naive s[:4] would cut through the second rune.
	s := "aéé"
	got := truncateOnRune(s, 4)
	if got != "aé" {
		t.Errorf("truncateOnRune(%q, 4) = %q, want %q", s, got, "aé")
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated string is not valid UTF-8: %q", got)
	}

	if got := truncateOnRune("pendek", 100); got != "pendek" {
		t.Errorf("short string changed: %q", got)
	}

	// Indonesian text with a multi-byte quote character at the cut point.
	long := strings.Repeat("x", 10) + "“kutipan”"
	cut := truncateOnRune(long, 12)
	if !utf8.ValidString(cut) {
		t.Errorf("cut produced invalid UTF-8: %q", cut)
	}
	if len(cut) > 12 {
		t.Errorf("cut longer than limit: %d bytes", len(cut))
	}
}

func TestParseRSSItems(t *testing.T) {
	feed := `<rss><channel>
<item><title><![CDATA[Fakta Sains Hari Ini]]></title><link>https://example.com/a</link><description>Deskripsi singkat</description><pubDate>Mon, 02 Jan 2006</pubDate></item>
<item><title>Berita Kedua</title><link>https://example.com/b</link></item>
<item><link>https://example.com/no-title</link></item>
</channel></rss>`

	items := parseRSSItems(feed)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (titleless item dropped)", len(items))
	}
	if items[0].Title != "Fakta Sains Hari Ini" {
		t.Errorf("CDATA title = %q", items[0].Title)
	}
	if items[0].Desc != "Deskripsi singkat" {
		t.Errorf("description = %q", items[0].Desc)
	}
	if items[1].Link != "https://example.com/b" {
		t.Errorf("link = %q", items[1].Link)
	}
}

func TestScoreContentPrefersWikipediaAndLongBodies(t *testing.T) {
	short := &types.RawContent{Source: "RSS sains", Body: strings.Repeat("a", 100)}
	long := &types.RawContent{Source: "RSS sains", Body: strings.Repeat("a", 900)}
	wiki := &types.RawContent{Source: "Wikipedia Indonesia", Body: strings.Repeat("a", 900)}

	if scoreContent(long) <= scoreContent(short) {
		t.Error("longer body should score higher")
	}
	if scoreContent(wiki) <= scoreContent(long) {
		t.Error("wikipedia source should score higher than RSS at equal length")
	}
}
