package pofile

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestParseWriteRoundTripAndHeaderFields(t *testing.T) {
	input := `msgid ""
msgstr ""
"Project-Id-Version: app 1.0\n"
"Language: en\n"

#. extracted comment
#: app.go:12
msgid "hello"
msgstr "hola"

#, fuzzy
#| msgid "old count"
msgid "count"
msgid_plural "counts"
msgstr[0] "uno"
msgstr[1] "muchos"
`

	f, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if got := f.HeaderField("language"); got != "en" {
		t.Fatalf("HeaderField(language) = %q, want en", got)
	}
	f.SetHeaderField("Language", "es")
	if got := f.HeaderField("Language"); got != "es" {
		t.Fatalf("Language header after SetHeaderField = %q, want es", got)
	}

	if len(f.Entries) != 2 {
		t.Fatalf("entries len = %d, want 2", len(f.Entries))
	}
	plural := f.EntryByMsgID("count")
	if plural == nil {
		t.Fatal("count entry not found")
	}
	if plural.PreviousMsgID != "old count" {
		t.Fatalf("PreviousMsgID = %q, want old count", plural.PreviousMsgID)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	round, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Parse roundtrip error: %v", err)
	}

	if round.HeaderField("Language") != "es" {
		t.Fatalf("roundtrip Language = %q, want es", round.HeaderField("Language"))
	}
	if got := round.EntryByMsgID("hello"); got == nil || got.MsgStr != "hola" {
		t.Fatalf("roundtrip hello entry mismatch: %#v", got)
	}
	roundPlural := round.EntryByMsgID("count")
	if roundPlural == nil {
		t.Fatal("roundtrip plural entry missing")
	}
	if !reflect.DeepEqual(roundPlural.MsgStrPlural, map[int]string{0: "uno", 1: "muchos"}) {
		t.Fatalf("roundtrip plural forms = %v", roundPlural.MsgStrPlural)
	}
}

func TestStatsAndUntranslated(t *testing.T) {
	f := NewFile()
	f.Entries = []*Entry{
		{MsgID: "t1", MsgStr: "translated"},
		{MsgID: "f1", MsgStr: "draft", Flags: []string{"fuzzy"}},
		{MsgID: "u1", MsgStr: ""},
		{MsgID: "u2", MsgStr: ""},
		{MsgID: "old", MsgStr: "x", Obsolete: true},
	}

	total, translated, fuzzy, untranslated := f.Stats()
	if total != 4 || translated != 1 || fuzzy != 1 || untranslated != 2 {
		t.Fatalf("Stats = total=%d translated=%d fuzzy=%d untranslated=%d", total, translated, fuzzy, untranslated)
	}

	un := f.UntranslatedEntries()
	if len(un) != 2 {
		t.Fatalf("UntranslatedEntries len = %d, want 2", len(un))
	}
	// Subsequence must preserve catalog order.
	if un[0].MsgID != "u1" || un[1].MsgID != "u2" {
		t.Fatalf("untranslated order: %q, %q", un[0].MsgID, un[1].MsgID)
	}
}

func TestQuoteUnquoteSpecialCharacters(t *testing.T) {
	cases := []string{
		"plain",
		"with \"quotes\"",
		"tab\tand newline\n",
		`backslash \ here`,
		"Hello <b>%s</b>, {0} items",
	}
	for _, in := range cases {
		if got := unquote(quote(in)); got != in {
			t.Errorf("unquote(quote(%q)) = %q", in, got)
		}
	}
}
