// Package batch drives the upgrade pipeline over an ordered set of
// documents and collects the upgraded outputs.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"projup/pkg/codec"
	"projup/pkg/core"
	"projup/pkg/counter"
	"projup/pkg/patch"
)

// ErrRunning is returned when Run is called while another run on the same
// batch is in progress.
var ErrRunning = errors.New("batch run already in progress")

// Observer is told about every item a run touches. Items are snapshots.
type Observer interface {
	ItemStarted(item Item, index, total int)
	ItemFinished(item Item, index, total int)
}

// Deps wires the collaborators of a Batch. Zero fields get defaults:
// the project patcher, the default codec, no counter and slog.Default().
type Deps struct {
	Patcher  *patch.Patcher
	Codec    *codec.Codec
	Counter  counter.Store
	Observer Observer
	Logger   *slog.Logger
}

// Batch owns an ordered collection of items and runs the upgrade pipeline
// over the pending ones.
type Batch struct {
	patcher  *patch.Patcher
	codec    codec.Codec
	counter  counter.Store
	observer Observer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	items   []*Item
	outputs []Output
	taken   map[string]bool
}

// Result summarises one run.
type Result struct {
	RunID         string
	Outputs       []Output
	SuccessCount  int
	Failed        int
	LifetimeTotal int

	failures *multierror.Error
}

// Err returns the item failures of the run, or nil.
func (r Result) Err() error {
	return r.failures.ErrorOrNil()
}

// New builds an empty batch.
func New(deps Deps) *Batch {
	b := &Batch{
		patcher:  deps.Patcher,
		codec:    codec.Default,
		counter:  deps.Counter,
		observer: deps.Observer,
		logger:   deps.Logger,
		taken:    map[string]bool{},
	}
	if b.patcher == nil {
		b.patcher = patch.Default()
	}
	if deps.Codec != nil {
		b.codec = *deps.Codec
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Add appends a pending item and returns its position.
func (b *Batch) Add(in InputFile) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, &Item{Input: in, Status: StatusPending})
	return len(b.items) - 1
}

// Items returns snapshots of all items in insertion order.
func (b *Batch) Items() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Item, len(b.items))
	for i, it := range b.items {
		out[i] = *it
	}
	return out
}

// Pending returns the number of items a run would process.
func (b *Batch) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, it := range b.items {
		if it.Status == StatusPending {
			n++
		}
	}
	return n
}

// Outputs returns every output produced so far, in insertion order.
func (b *Batch) Outputs() []Output {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Output(nil), b.outputs...)
}

// Reset drops all items and outputs.
func (b *Batch) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return ErrRunning
	}
	b.items = nil
	b.outputs = nil
	b.taken = map[string]bool{}
	return nil
}

// Run upgrades every pending item to target, one at a time in insertion
// order. Item failures are recorded on the item and never stop the run.
// When at least one item succeeded the lifetime counter is advanced; a
// counter failure is returned together with an otherwise complete Result.
// Cancelling ctx does not interrupt item processing.
func (b *Batch) Run(ctx context.Context, target string) (Result, error) {
	if err := ValidateTarget(target); err != nil {
		return Result{}, err
	}

	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return Result{}, ErrRunning
	}
	b.running = true
	var pending []int
	for i, it := range b.items {
		if it.Status == StatusPending {
			pending = append(pending, i)
		}
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	res := Result{RunID: uuid.NewString()}
	logger := b.logger.With(slog.String("run", res.RunID), slog.String("target", target))
	logger.Info("Starting batch run", "pending", len(pending))

	for n, idx := range pending {
		out, err := b.processItem(idx, target, n, len(pending))
		if err != nil {
			res.Failed++
			res.failures = multierror.Append(res.failures, err)
			logger.Warn("Item failed", "index", idx, "error", err)
			continue
		}
		res.Outputs = append(res.Outputs, out)
		res.SuccessCount++
		logger.Debug("Item completed", "index", idx, "output", out.Name, "bytes", len(out.Data))
	}

	logger.Info("Batch run finished", "succeeded", res.SuccessCount, "failed", res.Failed)

	if res.SuccessCount == 0 || b.counter == nil {
		return res, nil
	}
	total, err := counter.Increment(ctx, b.counter, res.SuccessCount)
	if err != nil {
		logger.Error("Failed to update lifetime total", "error", err)
		return res, fmt.Errorf("update lifetime total: %w", err)
	}
	res.LifetimeTotal = total
	return res, nil
}

// processItem runs one item through decode, detect, patch and encode.
// The returned error carries the item name.
func (b *Batch) processItem(idx int, target string, n, total int) (Output, error) {
	b.mu.Lock()
	item := b.items[idx]
	if err := item.start(); err != nil {
		b.mu.Unlock()
		return Output{}, err
	}
	snapshot := *item
	b.mu.Unlock()
	b.notify(true, snapshot, n, total)

	data, pipeErr := b.transform(item, target)

	b.mu.Lock()
	var out Output
	if pipeErr == nil {
		name := uniqueName(OutputName(item.Input.Name, target), b.taken)
		b.taken[name] = true
		pipeErr = item.complete(name)
		if pipeErr == nil {
			out = Output{Name: name, Data: data}
			b.outputs = append(b.outputs, out)
		}
	} else if err := item.fail(pipeErr); err != nil {
		pipeErr = err
	}
	snapshot = *item
	b.mu.Unlock()
	b.notify(false, snapshot, n, total)

	if pipeErr != nil {
		return Output{}, fmt.Errorf("%s: %w", item.Input.Name, pipeErr)
	}
	return out, nil
}

// transform is the per-document pipeline. The detected version is stored
// on item as soon as it is known; no other batch state is touched.
func (b *Batch) transform(item *Item, target string) ([]byte, error) {
	doc, err := b.codec.Decompress(item.Input.Data)
	if err != nil {
		return nil, err
	}
	detected, err := b.patcher.Detect(doc)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	item.DetectedVersion = detected
	b.mu.Unlock()

	patched, err := b.patcher.Patch(doc, target)
	if err != nil {
		return nil, err
	}
	return b.codec.Compress(patched)
}

func (b *Batch) notify(started bool, item Item, n, total int) {
	if b.observer == nil {
		return
	}
	if started {
		b.observer.ItemStarted(item, n, total)
	} else {
		b.observer.ItemFinished(item, n, total)
	}
}

// ZipEntries converts outputs into archive entries, preserving order.
func ZipEntries(outputs []Output) []core.ZipEntry {
	entries := make([]core.ZipEntry, len(outputs))
	for i, o := range outputs {
		entries[i] = core.ZipEntry{Name: o.Name, Data: o.Data}
	}
	return entries
}

// BundleEntries converts outputs into AGCP bundle entries.
func BundleEntries(outputs []Output) []core.Entry {
	entries := make([]core.Entry, len(outputs))
	for i, o := range outputs {
		entries[i] = core.Entry{RelPath: o.Name, Data: o.Data}
	}
	return entries
}
