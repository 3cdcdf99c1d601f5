package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"potrans/cache"
	"potrans/pofile"
	"potrans/progress"
	"potrans/provider"
)

// stubTranslator is a deterministic single-string provider for tests.
type stubTranslator struct {
	mu    sync.Mutex
	calls int
	fn    func(text string) (string, error)
}

var _ provider.Translator = (*stubTranslator)(nil)

func (s *stubTranslator) Name() string { return "stub" }

func (s *stubTranslator) TranslateOne(ctx context.Context, text, targetLang string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(text)
}

func (s *stubTranslator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// bulkStub adds a bulk primitive on top of stubTranslator.
type bulkStub struct {
	stubTranslator
	bulkCalls int
	bulkFn    func(texts []string) ([]string, error)
}

var _ provider.BulkTranslator = (*bulkStub)(nil)

func (b *bulkStub) TranslateMany(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	b.mu.Lock()
	b.bulkCalls++
	b.mu.Unlock()
	return b.bulkFn(texts)
}

func appendES(text string) (string, error) { return text + "[es]", nil }

func catalogWith(msgids ...string) *pofile.File {
	f := pofile.NewFile()
	f.Header.MsgStr = "Content-Type: text/plain; charset=UTF-8\n"
	for _, id := range msgids {
		f.Entries = append(f.Entries, &pofile.Entry{MsgID: id})
	}
	return f
}

func outputPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "out.po")
}

func TestSequential_ConcreteScenario(t *testing.T) {
	catalog := catalogWith("Hello <b>%s</b>", "Plain text", "Value {0}")
	out := outputPath(t)

	orch := New(&stubTranslator{fn: appendES}, Options{
		TargetLang: "es",
		OutputPath: out,
	})
	result, err := orch.Run(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Total != 3 || result.Translated != 3 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}

	want := map[string]string{
		"Hello <b>%s</b>": "Hello <b>%s</b>[es]",
		"Plain text":      "Plain text[es]",
		"Value {0}":       "Value {0}[es]",
	}
	for id, translation := range want {
		e := catalog.EntryByMsgID(id)
		if e == nil || e.MsgStr != translation {
			t.Errorf("entry %q = %q, want %q", id, e.MsgStr, translation)
		}
	}

	// The final catalog must be on disk and the marker gone.
	saved, err := pofile.ParseFile(out)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if e := saved.EntryByMsgID("Plain text"); e == nil || e.MsgStr != "Plain text[es]" {
		t.Error("saved catalog missing translation")
	}
	if _, err := os.Stat(progress.Path(out)); !os.IsNotExist(err) {
		t.Error("progress marker should be cleared after a clean run")
	}
}

func TestSequential_RoundTripIdentity(t *testing.T) {
	msgids := []string{
		`Click <a href="%s">here</a> to continue`,
		"Progress: {0} of {1}",
		"No tokens at all",
	}
	catalog := catalogWith(msgids...)

	identity := &stubTranslator{fn: func(text string) (string, error) { return text, nil }}
	orch := New(identity, Options{TargetLang: "es", OutputPath: outputPath(t)})
	if _, err := orch.Run(context.Background(), catalog); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, id := range msgids {
		if e := catalog.EntryByMsgID(id); e.MsgStr != id {
			t.Errorf("identity transform mangled %q into %q", id, e.MsgStr)
		}
	}
}

func TestBatch_PreservesOrderAcrossChunks(t *testing.T) {
	catalog := catalogWith("alpha", "bravo", "charlie", "delta", "echo")

	stub := &bulkStub{
		bulkFn: func(texts []string) ([]string, error) {
			out := make([]string, len(texts))
			for i, text := range texts {
				out[i] = "«" + text + "»"
			}
			return out, nil
		},
	}
	orch := New(stub, Options{TargetLang: "es", BatchSize: 2, OutputPath: outputPath(t)})
	result, err := orch.Run(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Translated != 5 {
		t.Errorf("Translated = %d, want 5", result.Translated)
	}
	if stub.bulkCalls != 3 {
		t.Errorf("bulk calls = %d, want 3 chunks for 5 entries of size 2", stub.bulkCalls)
	}

	// Each translation must carry its own source, or the chunks were
	// misaligned.
	for _, e := range catalog.Entries {
		if want := "«" + e.MsgID + "»"; e.MsgStr != want {
			t.Errorf("entry %q = %q, want %q", e.MsgID, e.MsgStr, want)
		}
	}
}

func TestBatch_TakesPrecedenceOverParallel(t *testing.T) {
	catalog := catalogWith("one", "two", "three")

	stub := &bulkStub{
		bulkFn: func(texts []string) ([]string, error) {
			out := make([]string, len(texts))
			copy(out, texts)
			return out, nil
		},
	}
	stub.fn = func(text string) (string, error) { return text, nil }

	var logged []string
	orch := New(stub, Options{
		TargetLang: "es",
		BatchSize:  10,
		Workers:    4,
		OutputPath: outputPath(t),
		OnLog:      func(format string, args ...any) { logged = append(logged, fmt.Sprintf(format, args...)) },
	})
	if _, err := orch.Run(context.Background(), catalog); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stub.bulkCalls == 0 || stub.callCount() != 0 {
		t.Errorf("bulk calls = %d, single calls = %d; batch mode should win", stub.bulkCalls, stub.callCount())
	}
	if !strings.Contains(strings.Join(logged, "\n"), "precedence") {
		t.Error("expected a notice that batch mode takes precedence")
	}
}

func TestBatch_FallbackIsolatesFailingEntry(t *testing.T) {
	msgids := make([]string, 10)
	for i := range msgids {
		msgids[i] = fmt.Sprintf("entry %d", i)
	}
	msgids[4] = "bad entry"
	catalog := catalogWith(msgids...)
	out := outputPath(t)

	stub := &bulkStub{
		bulkFn: func([]string) ([]string, error) { return nil, errors.New("bulk endpoint down") },
	}
	stub.fn = func(text string) (string, error) {
		if text == "bad entry" {
			return "", errors.New("poison")
		}
		return text + "[es]", nil
	}

	orch := New(stub, Options{TargetLang: "es", BatchSize: 10, OutputPath: out})
	result, err := orch.Run(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Translated != 9 || result.Failed != 1 {
		t.Errorf("result = %+v, want 9 translated / 1 failed", result)
	}
	for _, e := range catalog.Entries {
		switch e.MsgID {
		case "bad entry":
			if e.MsgStr != "" {
				t.Errorf("failed entry got translation %q", e.MsgStr)
			}
		default:
			if e.MsgStr != e.MsgID+"[es]" {
				t.Errorf("entry %q = %q", e.MsgID, e.MsgStr)
			}
		}
	}

	// Failures keep the marker so the run can be retried with resume.
	if got := progress.Load(out); got != 9 {
		t.Errorf("marker = %d, want 9", got)
	}
}

func TestResume_MatchesUninterruptedRun(t *testing.T) {
	msgids := make([]string, 8)
	for i := range msgids {
		msgids[i] = fmt.Sprintf("message %d", i)
	}

	// Reference: one uninterrupted run.
	reference := catalogWith(msgids...)
	orch := New(&stubTranslator{fn: appendES}, Options{TargetLang: "es", OutputPath: outputPath(t)})
	if _, err := orch.Run(context.Background(), reference); err != nil {
		t.Fatalf("reference run: %v", err)
	}

	// Interrupted: cancel right after the third translation, so the
	// checkpoint at 3 is the last persisted state.
	out := outputPath(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupting := &stubTranslator{}
	interrupting.fn = func(text string) (string, error) {
		if interrupting.calls >= 3 {
			cancel()
		}
		return text + "[es]", nil
	}
	orch = New(interrupting, Options{
		TargetLang:      "es",
		CheckpointEvery: 3,
		OutputPath:      out,
	})
	result, _ := orch.Run(ctx, catalogWith(msgids...))
	if result.Translated != 3 {
		t.Fatalf("interrupted run translated %d, want 3", result.Translated)
	}
	if got := progress.Load(out); got != 3 {
		t.Fatalf("marker after interruption = %d, want 3", got)
	}

	// Resume from the checkpointed output, which is the source of truth
	// for what already carries a translation.
	resumed, err := pofile.ParseFile(out)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	orch = New(&stubTranslator{fn: appendES}, Options{
		TargetLang: "es",
		Resume:     true,
		OutputPath: out,
	})
	result, err = orch.Run(context.Background(), resumed)
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if result.Resumed != 3 || result.Total != 5 || result.Translated != 5 {
		t.Errorf("resumed result = %+v, want resumed=3 total=5 translated=5", result)
	}

	for _, id := range msgids {
		want := reference.EntryByMsgID(id).MsgStr
		got := resumed.EntryByMsgID(id).MsgStr
		if got != want || got == "" {
			t.Errorf("entry %q = %q, want %q", id, got, want)
		}
	}
	if _, err := os.Stat(progress.Path(out)); !os.IsNotExist(err) {
		t.Error("marker should be cleared after the resumed run completes")
	}
}

func TestCache_ConsultedBeforeProvider(t *testing.T) {
	store, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store.Put(cache.Request{Text: "Hello", TargetLang: "es", Provider: "stub"}, "Hola")

	catalog := catalogWith("Hello", "World")
	stub := &stubTranslator{fn: appendES}
	orch := New(stub, Options{
		TargetLang: "es",
		Cache:      store,
		OutputPath: outputPath(t),
	})
	result, err := orch.Run(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stub.callCount() != 1 {
		t.Errorf("provider calls = %d, want 1 (cache must serve the other)", stub.callCount())
	}
	if result.CacheHits != 1 || result.Translated != 2 {
		t.Errorf("result = %+v", result)
	}
	if e := catalog.EntryByMsgID("Hello"); e.MsgStr != "Hola" {
		t.Errorf("cached entry = %q, want Hola", e.MsgStr)
	}

	// A rerun over a fresh catalog is now fully served from cache.
	rerun := catalogWith("Hello", "World")
	idle := &stubTranslator{fn: appendES}
	orch = New(idle, Options{TargetLang: "es", Cache: store, OutputPath: outputPath(t)})
	if _, err := orch.Run(context.Background(), rerun); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if idle.callCount() != 0 {
		t.Errorf("rerun made %d provider calls, want 0", idle.callCount())
	}
}

func TestParallel_TranslatesEverything(t *testing.T) {
	msgids := make([]string, 20)
	for i := range msgids {
		msgids[i] = fmt.Sprintf("parallel message %d", i)
	}
	catalog := catalogWith(msgids...)
	out := outputPath(t)

	stub := &stubTranslator{fn: appendES}
	orch := New(stub, Options{
		TargetLang: "es",
		Workers:    4,
		OutputPath: out,
	})
	result, err := orch.Run(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Translated != 20 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
	for _, id := range msgids {
		if e := catalog.EntryByMsgID(id); e.MsgStr != id+"[es]" {
			t.Errorf("entry %q = %q", id, e.MsgStr)
		}
	}
	if _, err := os.Stat(progress.Path(out)); !os.IsNotExist(err) {
		t.Error("marker should be cleared after a clean parallel run")
	}
}

func TestCheckpoint_PersistsMidRun(t *testing.T) {
	catalog := catalogWith("a", "b", "c", "d", "e")
	out := outputPath(t)

	stub := &stubTranslator{}
	stub.fn = func(text string) (string, error) {
		// By the third call, the checkpoint after entry two must be on disk.
		if stub.calls == 3 {
			if _, err := os.Stat(out); err != nil {
				t.Errorf("catalog not checkpointed: %v", err)
			}
			if got := progress.Load(out); got != 2 {
				t.Errorf("marker mid-run = %d, want 2", got)
			}
		}
		return text + "[es]", nil
	}

	orch := New(stub, Options{
		TargetLang:      "es",
		CheckpointEvery: 2,
		OutputPath:      out,
	})
	if _, err := orch.Run(context.Background(), catalog); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRun_NothingToTranslate(t *testing.T) {
	catalog := catalogWith("done")
	catalog.Entries[0].MsgStr = "hecho"
	out := outputPath(t)

	stub := &stubTranslator{fn: appendES}
	orch := New(stub, Options{TargetLang: "es", OutputPath: out})
	result, err := orch.Run(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Total != 0 || stub.callCount() != 0 {
		t.Errorf("result = %+v, calls = %d", result, stub.callCount())
	}
	if _, err := os.Stat(out); err != nil {
		t.Error("catalog should still be written")
	}
}
