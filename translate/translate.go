// Package translate drives untranslated PO entries through the
// translation pipeline: cache lookup, placeholder masking, provider
// dispatch (batched, parallel, or sequential), reinsertion, and periodic
// checkpointing so an interrupted run can resume.
package translate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"potrans/cache"
	"potrans/placeholder"
	"potrans/pofile"
	"potrans/progress"
	"potrans/provider"
)

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls one translation run.
type Options struct {
	// TargetLang is the target language code (e.g. "es").
	TargetLang string
	// BatchSize is how many entries go into one bulk call. A value > 1
	// with a bulk-capable provider selects batch mode. Default: 10.
	BatchSize int
	// Workers is the parallel worker count. A value > 1 selects
	// parallel mode unless batch mode already applies. Default: 1.
	Workers int
	// Delay is the pause between provider calls. In parallel mode the
	// delay is divided by the worker count so the aggregate request
	// rate stays roughly constant. Default: 500ms.
	Delay time.Duration
	// CheckpointEvery is how many processed entries trigger a catalog
	// save plus progress marker update. Default: 50.
	CheckpointEvery int
	// Resume continues an interrupted run. The caller is expected to
	// reload the checkpointed output catalog, which already carries the
	// translations persisted so far; the progress marker supplies the
	// offset for checkpoint numbering and the completion report.
	Resume bool
	// Cache is the translation cache; nil disables caching.
	Cache *cache.Store
	// OutputPath is where checkpoints and the final catalog are written.
	OutputPath string

	// OnProgress is called after each entry is resolved (done, total).
	OnProgress func(done, total int)
	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnWarn emits warnings (failed entries, cache trouble, fidelity risks).
	OnWarn func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) warn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	}
}

func (o *Options) effectiveBatchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 10
}

func (o *Options) effectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return 1
}

func (o *Options) effectiveDelay() time.Duration {
	if o.Delay > 0 {
		return o.Delay
	}
	return 0
}

func (o *Options) effectiveCheckpointEvery() int {
	if o.CheckpointEvery > 0 {
		return o.CheckpointEvery
	}
	return 50
}

// Result summarizes a run for the completion report.
type Result struct {
	// Total is the number of untranslated entries this run attempted.
	Total int
	// Translated counts entries that received a translation, cache hits included.
	Translated int
	// CacheHits counts translations served without a provider call.
	CacheHits int
	// Failed counts entries left untranslated after provider errors.
	Failed int
	// Resumed is the translated count a resumed run started from.
	Resumed int
}

// ---------------------------------------------------------------------------
// Orchestrator
// ---------------------------------------------------------------------------

// Orchestrator owns one run over one catalog. The catalog and the
// progress marker are mutated only on the orchestrating goroutine;
// workers hand their results back over a completion channel.
type Orchestrator struct {
	prov provider.Translator
	opts Options

	processed int // entries resolved so far, checkpoint numbering includes resume offset
	result    Result
}

// New builds an orchestrator for a provider and options.
func New(prov provider.Translator, opts Options) *Orchestrator {
	return &Orchestrator{prov: prov, opts: opts}
}

// Run translates the untranslated entries of catalog in place and
// persists the catalog to opts.OutputPath. Individual entry failures are
// recorded in the Result and do not abort the run; a failed final save
// does, since losing the output defeats the run's purpose.
func (o *Orchestrator) Run(ctx context.Context, catalog *pofile.File) (Result, error) {
	entries := catalog.UntranslatedEntries()

	if o.opts.Resume {
		offset := progress.Load(o.opts.OutputPath)
		if offset > 0 {
			o.opts.log("Resuming from checkpoint: %d entries already translated", offset)
		}
		o.result.Resumed = offset
		o.processed = offset
	}

	o.result.Total = len(entries)
	if len(entries) == 0 {
		o.opts.log("Nothing to translate")
		return o.result, o.finalize(ctx, catalog)
	}

	bulk, bulkCapable := o.prov.(provider.BulkTranslator)
	batchMode := o.opts.effectiveBatchSize() > 1 && bulkCapable
	parallelMode := !batchMode && o.opts.effectiveWorkers() > 1

	switch {
	case batchMode:
		if o.opts.effectiveWorkers() > 1 {
			o.opts.log("Batch mode takes precedence; ignoring --parallel")
		}
		o.runBatched(ctx, catalog, entries, bulk)
	case parallelMode:
		o.runParallel(ctx, catalog, entries)
	default:
		o.runSequential(ctx, catalog, entries)
	}

	if err := o.finalize(ctx, catalog); err != nil {
		return o.result, err
	}
	return o.result, ctx.Err()
}

// ---------------------------------------------------------------------------
// Single-entry pipeline (shared by all modes)
// ---------------------------------------------------------------------------

// translateEntry resolves one entry: cache, then mask → provider →
// reinsert → cache. Safe to call from worker goroutines: it touches
// only the cache store, never the catalog.
func (o *Orchestrator) translateEntry(ctx context.Context, e *pofile.Entry) (text string, cacheHit bool, err error) {
	req := cache.Request{Text: e.MsgID, TargetLang: o.opts.TargetLang, Provider: o.prov.Name()}

	if o.opts.Cache != nil {
		if hit, ok := o.opts.Cache.Get(req); ok {
			return hit, true, nil
		}
	}

	masked, tags, vars := placeholder.Isolate(e.MsgID)

	out, err := o.prov.TranslateOne(ctx, masked, o.opts.TargetLang)
	if err != nil {
		return "", false, err
	}

	final, mismatch := placeholder.Reinsert(out, tags, vars)
	if mismatch != nil {
		o.opts.warn("%q: %v", e.MsgID, mismatch)
	}

	if o.opts.Cache != nil {
		o.opts.Cache.Put(req, final)
	}
	return final, false, nil
}

// apply writes a resolved translation back into its entry and advances
// the counters and checkpoint clock. Orchestrating goroutine only.
func (o *Orchestrator) apply(ctx context.Context, catalog *pofile.File, e *pofile.Entry, text string, cacheHit bool, err error) {
	if err != nil {
		o.result.Failed++
		if ctx.Err() == nil {
			o.opts.warn("Error translating %q: %v", e.MsgID, err)
		}
	} else {
		e.MsgStr = text
		o.result.Translated++
		if cacheHit {
			o.result.CacheHits++
		}
	}

	o.processed++
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(o.processed-o.result.Resumed, o.result.Total)
	}

	if o.processed%o.opts.effectiveCheckpointEvery() == 0 {
		o.checkpoint(catalog)
	}
}

// checkpoint persists the in-progress catalog and the progress marker,
// bounding the work lost to a crash to the current window. Checkpoint
// I/O failures are warnings; only the final save is fatal.
func (o *Orchestrator) checkpoint(catalog *pofile.File) {
	if err := catalog.WriteFile(o.opts.OutputPath); err != nil {
		o.opts.warn("Checkpoint save failed: %v", err)
		return
	}
	if err := progress.Save(o.opts.OutputPath, o.translatedSoFar()); err != nil {
		o.opts.warn("Progress marker update failed: %v", err)
		return
	}
	o.opts.log("Checkpoint: %d entries processed", o.processed)
}

// finalize persists the catalog unconditionally and clears the progress
// marker on full, error-free completion. A marker left behind signals an
// interrupted run available for resume.
func (o *Orchestrator) finalize(ctx context.Context, catalog *pofile.File) error {
	catalog.SetHeaderField("PO-Revision-Date", time.Now().UTC().Format("2006-01-02 15:04+0000"))

	if err := catalog.WriteFile(o.opts.OutputPath); err != nil {
		return fmt.Errorf("saving catalog to %s: %w", o.opts.OutputPath, err)
	}

	if ctx.Err() == nil && o.result.Failed == 0 {
		if err := progress.Clear(o.opts.OutputPath); err != nil {
			o.opts.warn("Could not remove progress marker: %v", err)
		}
		return nil
	}

	if err := progress.Save(o.opts.OutputPath, o.translatedSoFar()); err != nil {
		o.opts.warn("Progress marker update failed: %v", err)
	}
	return nil
}

// translatedSoFar is the marker value: translations persisted for this
// output across the original run and any resumed continuation.
func (o *Orchestrator) translatedSoFar() int {
	return o.result.Resumed + o.result.Translated
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// ---------------------------------------------------------------------------
// Sequential mode
// ---------------------------------------------------------------------------

// runSequential processes one entry at a time with a fixed inter-call
// delay, the politest mode toward provider rate limits.
func (o *Orchestrator) runSequential(ctx context.Context, catalog *pofile.File, entries []*pofile.Entry) {
	for i, e := range entries {
		if ctx.Err() != nil {
			return
		}

		text, hit, err := o.translateEntry(ctx, e)
		o.apply(ctx, catalog, e, text, hit, err)

		if i < len(entries)-1 && !hit {
			sleep(ctx, o.opts.effectiveDelay())
		}
	}
}

// ---------------------------------------------------------------------------
// Batch mode
// ---------------------------------------------------------------------------

// runBatched groups entries into fixed-size chunks and sends each chunk
// through one bulk call. A failed chunk falls back to per-entry
// translation, so one poisoned string cannot sink its chunk-mates.
func (o *Orchestrator) runBatched(ctx context.Context, catalog *pofile.File, entries []*pofile.Entry, bulk provider.BulkTranslator) {
	chunks := splitEntries(entries, o.opts.effectiveBatchSize())

	for ci, chunk := range chunks {
		if ctx.Err() != nil {
			return
		}

		// Serve cache hits first; only misses go to the provider.
		var pending []*pofile.Entry
		for _, e := range chunk {
			if o.opts.Cache != nil {
				req := cache.Request{Text: e.MsgID, TargetLang: o.opts.TargetLang, Provider: o.prov.Name()}
				if hit, ok := o.opts.Cache.Get(req); ok {
					o.apply(ctx, catalog, e, hit, true, nil)
					continue
				}
			}
			pending = append(pending, e)
		}
		if len(pending) == 0 {
			continue
		}

		masked := make([]string, len(pending))
		manifests := make([][2][]string, len(pending))
		for i, e := range pending {
			m, tags, vars := placeholder.Isolate(e.MsgID)
			masked[i] = m
			manifests[i] = [2][]string{tags, vars}
		}

		outs, err := bulk.TranslateMany(ctx, masked, o.opts.TargetLang)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Whole-chunk failure: isolate it by retrying per entry.
			o.opts.warn("Chunk %d/%d failed (%v); falling back to per-entry translation", ci+1, len(chunks), err)
			for _, e := range pending {
				if ctx.Err() != nil {
					return
				}
				text, hit, err := o.translateEntry(ctx, e)
				o.apply(ctx, catalog, e, text, hit, err)
			}
		} else {
			for i, e := range pending {
				final, mismatch := placeholder.Reinsert(outs[i], manifests[i][0], manifests[i][1])
				if mismatch != nil {
					o.opts.warn("%q: %v", e.MsgID, mismatch)
				}
				if o.opts.Cache != nil {
					req := cache.Request{Text: e.MsgID, TargetLang: o.opts.TargetLang, Provider: o.prov.Name()}
					o.opts.Cache.Put(req, final)
				}
				o.apply(ctx, catalog, e, final, false, nil)
			}
		}

		if ci < len(chunks)-1 {
			sleep(ctx, o.opts.effectiveDelay())
		}
	}
}

// splitEntries divides entries into chunks of the given size.
func splitEntries(entries []*pofile.Entry, chunkSize int) [][]*pofile.Entry {
	if chunkSize <= 0 || chunkSize >= len(entries) {
		return [][]*pofile.Entry{entries}
	}
	var chunks [][]*pofile.Entry
	for i := 0; i < len(entries); i += chunkSize {
		end := i + chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		chunks = append(chunks, entries[i:end])
	}
	return chunks
}

// ---------------------------------------------------------------------------
// Parallel mode
// ---------------------------------------------------------------------------

// outcome is one worker's completed unit, handed back to the
// orchestrating goroutine for application to the catalog.
type outcome struct {
	entry    *pofile.Entry
	text     string
	cacheHit bool
	err      error
}

// runParallel dispatches entries to a bounded worker pool. Workers only
// translate; every catalog write and checkpoint happens here on the
// orchestrating goroutine, so the catalog needs no locking. The
// inter-call delay is divided by the worker count to keep the aggregate
// request rate roughly constant.
func (o *Orchestrator) runParallel(ctx context.Context, catalog *pofile.File, entries []*pofile.Entry) {
	workers := o.opts.effectiveWorkers()
	workerDelay := o.opts.effectiveDelay() / time.Duration(workers)

	work := make(chan *pofile.Entry, len(entries))
	for _, e := range entries {
		work <- e
	}
	close(work)

	completions := make(chan outcome)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range work {
				if ctx.Err() != nil {
					return
				}
				text, hit, err := o.translateEntry(ctx, e)
				completions <- outcome{entry: e, text: text, cacheHit: hit, err: err}
				if !hit {
					sleep(ctx, workerDelay)
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(completions)
	}()

	for c := range completions {
		o.apply(ctx, catalog, c.entry, c.text, c.cacheHit, c.err)
	}
}
