// Package pofile implements reading and writing of gettext PO catalogs.
//
// This is the catalog collaborator for the translation pipeline: it
// parses a file into an ordered sequence of entries, exposes the
// untranslated subsequence, and persists the catalog back to disk. The
// translation pipeline itself never touches the wire format.
package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Entry represents a single translatable message in a PO file. The
// source text (MsgID) is its identity; MsgStr is the mutable translation
// slot the pipeline fills in.
type Entry struct {
	// TranslatorComments are lines starting with "# ".
	TranslatorComments []string
	// ExtractedComments are lines starting with "#.".
	ExtractedComments []string
	// References are source code locations, lines starting with "#:".
	References []string
	// Flags are format flags, lines starting with "#,".
	Flags []string
	// PreviousMsgID stores the previous msgid for fuzzy entries ("#|").
	PreviousMsgID string

	// MsgCtxt is the message context (msgctxt).
	MsgCtxt string
	// MsgID is the untranslated string.
	MsgID string
	// MsgIDPlural is the untranslated plural string.
	MsgIDPlural string
	// MsgStr is the translated string (singular or the only form).
	MsgStr string
	// MsgStrPlural maps plural form index to translated string.
	MsgStrPlural map[int]string

	// Obsolete marks entries prefixed with "#~".
	Obsolete bool
}

// IsTranslated returns true if the entry has a non-empty translation.
func (e *Entry) IsTranslated() bool {
	if e.MsgID == "" {
		return false // header entry
	}
	if e.IsFuzzy() {
		return false
	}
	if e.MsgIDPlural != "" {
		for _, v := range e.MsgStrPlural {
			if v == "" {
				return false
			}
		}
		return len(e.MsgStrPlural) > 0
	}
	return e.MsgStr != ""
}

// IsFuzzy returns true if the entry is marked fuzzy.
func (e *Entry) IsFuzzy() bool {
	for _, f := range e.Flags {
		if f == "fuzzy" {
			return true
		}
	}
	return false
}

// SetFuzzy adds or removes the fuzzy flag.
func (e *Entry) SetFuzzy(fuzzy bool) {
	if fuzzy && !e.IsFuzzy() {
		e.Flags = append(e.Flags, "fuzzy")
	} else if !fuzzy {
		filtered := make([]string, 0, len(e.Flags))
		for _, f := range e.Flags {
			if f != "fuzzy" {
				filtered = append(filtered, f)
			}
		}
		e.Flags = filtered
	}
}

// File represents a parsed PO catalog.
type File struct {
	// Header is the metadata entry (msgid "").
	Header *Entry
	// Entries are the translatable message entries, in file order.
	Entries []*Entry
}

// NewFile creates a new empty PO file.
func NewFile() *File {
	return &File{
		Header: &Entry{
			MsgID:  "",
			MsgStr: "",
		},
		Entries: make([]*Entry, 0),
	}
}

// HeaderField returns a header field value by name.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			if strings.EqualFold(key, name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// SetHeaderField sets a header field value.
func (f *File) SetHeaderField(name, value string) {
	if f.Header == nil {
		f.Header = &Entry{MsgID: "", MsgStr: ""}
	}

	lines := strings.Split(f.Header.MsgStr, "\n")
	found := false
	for i, line := range lines {
		if idx := strings.Index(line, ":"); idx > 0 {
			key := strings.TrimSpace(line[:idx])
			if strings.EqualFold(key, name) {
				lines[i] = name + ": " + value
				found = true
				break
			}
		}
	}
	if !found {
		// Insert before trailing empty line
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = append(lines[:len(lines)-1], name+": "+value, "")
		} else {
			lines = append(lines, name+": "+value)
		}
	}
	f.Header.MsgStr = strings.Join(lines, "\n")
}

// EntryByMsgID finds an entry by its msgid.
func (f *File) EntryByMsgID(msgid string) *Entry {
	for _, e := range f.Entries {
		if e.MsgID == msgid && !e.Obsolete {
			return e
		}
	}
	return nil
}

// Stats returns translation statistics.
func (f *File) Stats() (total, translated, fuzzy, untranslated int) {
	for _, e := range f.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		total++
		if e.IsFuzzy() {
			fuzzy++
		} else if e.IsTranslated() {
			translated++
		} else {
			untranslated++
		}
	}
	return
}

// UntranslatedEntries returns the ordered subsequence of entries that
// have no translation and are not fuzzy.
func (f *File) UntranslatedEntries() []*Entry {
	var result []*Entry
	for _, e := range f.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		if !e.IsTranslated() && !e.IsFuzzy() {
			result = append(result, e)
		}
	}
	return result
}

// Parse reads a PO catalog from a reader.
func Parse(r io.Reader) (*File, error) {
	f := NewFile()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var current *Entry
	var lastField string // tracks the last msgid/msgstr/etc. field for multiline strings
	lineNum := 0

	flush := func() {
		if current == nil {
			return
		}
		if current.MsgID == "" && !current.Obsolete {
			f.Header = current
		} else {
			f.Entries = append(f.Entries, current)
		}
		current = nil
		lastField = ""
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Empty line separates entries
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if current == nil {
			current = &Entry{
				MsgStrPlural: make(map[int]string),
			}
		}

		// Handle obsolete entries
		if strings.HasPrefix(line, "#~ ") {
			current.Obsolete = true
			line = line[3:]
		}

		// Comment lines
		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "#~") {
			if strings.HasPrefix(line, "#:") {
				refs := strings.TrimSpace(line[2:])
				current.References = append(current.References, refs)
			} else if strings.HasPrefix(line, "#,") {
				flagStr := strings.TrimSpace(line[2:])
				for _, flag := range strings.Split(flagStr, ",") {
					flag = strings.TrimSpace(flag)
					if flag != "" {
						current.Flags = append(current.Flags, flag)
					}
				}
			} else if strings.HasPrefix(line, "#.") {
				current.ExtractedComments = append(current.ExtractedComments, strings.TrimSpace(line[2:]))
			} else if strings.HasPrefix(line, "#|") {
				prev := strings.TrimSpace(line[2:])
				if strings.HasPrefix(prev, "msgid ") {
					current.PreviousMsgID = unquote(strings.TrimPrefix(prev, "msgid "))
				}
			} else {
				comment := line[1:]
				if strings.HasPrefix(comment, " ") {
					comment = comment[1:]
				}
				current.TranslatorComments = append(current.TranslatorComments, comment)
			}
			continue
		}

		// msgctxt
		if strings.HasPrefix(line, "msgctxt ") {
			current.MsgCtxt = unquote(strings.TrimPrefix(line, "msgctxt "))
			lastField = "msgctxt"
			continue
		}

		// msgid_plural
		if strings.HasPrefix(line, "msgid_plural ") {
			current.MsgIDPlural = unquote(strings.TrimPrefix(line, "msgid_plural "))
			lastField = "msgid_plural"
			continue
		}

		// msgid
		if strings.HasPrefix(line, "msgid ") {
			current.MsgID = unquote(strings.TrimPrefix(line, "msgid "))
			lastField = "msgid"
			continue
		}

		// msgstr[N]
		if strings.HasPrefix(line, "msgstr[") {
			var idx int
			var quoted string
			n, err := fmt.Sscanf(line, "msgstr[%d]", &idx)
			if err != nil || n != 1 {
				return nil, fmt.Errorf("line %d: invalid msgstr index: %s", lineNum, line)
			}
			bracketEnd := strings.Index(line, "] ")
			if bracketEnd < 0 {
				return nil, fmt.Errorf("line %d: invalid msgstr format: %s", lineNum, line)
			}
			quoted = line[bracketEnd+2:]
			current.MsgStrPlural[idx] = unquote(quoted)
			lastField = fmt.Sprintf("msgstr[%d]", idx)
			continue
		}

		// msgstr
		if strings.HasPrefix(line, "msgstr ") {
			current.MsgStr = unquote(strings.TrimPrefix(line, "msgstr "))
			lastField = "msgstr"
			continue
		}

		// Continuation line (starts with ")
		if strings.HasPrefix(line, "\"") {
			val := unquote(line)
			switch {
			case lastField == "msgctxt":
				current.MsgCtxt += val
			case lastField == "msgid":
				current.MsgID += val
			case lastField == "msgid_plural":
				current.MsgIDPlural += val
			case lastField == "msgstr":
				current.MsgStr += val
			case strings.HasPrefix(lastField, "msgstr["):
				var idx int
				fmt.Sscanf(lastField, "msgstr[%d]", &idx)
				current.MsgStrPlural[idx] += val
			}
			continue
		}
	}

	// Flush last entry
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading PO file: %w", err)
	}

	return f, nil
}

// ParseFile reads a PO catalog from disk.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Write writes the PO catalog to a writer.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if f.Header != nil {
		if err := writeEntry(bw, f.Header); err != nil {
			return err
		}
	}

	for _, e := range f.Entries {
		fmt.Fprintln(bw)
		if err := writeEntry(bw, e); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFile writes the PO catalog to disk.
func (f *File) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return f.Write(out)
}

func writeEntry(w *bufio.Writer, e *Entry) error {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}

	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}
	if e.PreviousMsgID != "" {
		fmt.Fprintf(w, "#| msgid %s\n", quote(e.PreviousMsgID))
	}

	if e.MsgCtxt != "" {
		writeQuotedField(w, prefix+"msgctxt", e.MsgCtxt)
	}

	writeQuotedField(w, prefix+"msgid", e.MsgID)

	if e.MsgIDPlural != "" {
		writeQuotedField(w, prefix+"msgid_plural", e.MsgIDPlural)
	}

	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		indices := make([]int, 0, len(e.MsgStrPlural))
		for idx := range e.MsgStrPlural {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			writeQuotedField(w, fmt.Sprintf("%smsgstr[%d]", prefix, idx), e.MsgStrPlural[idx])
		}
	} else {
		writeQuotedField(w, prefix+"msgstr", e.MsgStr)
	}

	return nil
}

// writeQuotedField writes a PO field with proper multiline quoting.
func writeQuotedField(w *bufio.Writer, field, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", field, quote(value))
		return
	}

	// Multiline: use empty string on first line
	fmt.Fprintf(w, "%s \"\"\n", field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s\n", quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s\n", quote(part))
		}
	}
}

// quote produces a PO-style quoted string.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

// unquote removes PO-style quoting from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				result.WriteByte('\n')
				i++
			case 't':
				result.WriteByte('\t')
				i++
			case '\\':
				result.WriteByte('\\')
				i++
			case '"':
				result.WriteByte('"')
				i++
			default:
				result.WriteByte(s[i])
			}
		} else {
			result.WriteByte(s[i])
		}
	}
	return result.String()
}
