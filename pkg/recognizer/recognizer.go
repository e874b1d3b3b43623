// Package recognizer is the composition root: it wires Buffer, Store,
// Emitter, Scheduler, and Runner together, builds the plugin context for
// each pass, and translates the Store's reconciliation diffs into the
// public entity/remove/diagnostic event stream. It is grounded on the
// teacher's pkg/diff.Syncer: an options struct, a defaulting constructor,
// an init() that wires sub-components, and context-threaded cancellation
// around a multi-stage pipeline.
package recognizer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/textsense/recognizer/pkg/buffer"
	"github.com/textsense/recognizer/pkg/emitter"
	"github.com/textsense/recognizer/pkg/plugin"
	"github.com/textsense/recognizer/pkg/runner"
	"github.com/textsense/recognizer/pkg/scheduler"
	"github.com/textsense/recognizer/pkg/store"
	"github.com/textsense/recognizer/pkg/types"
)

// CommitReason is the caller-supplied reason a commit was forced.
type CommitReason string

const (
	CommitEnter   CommitReason = "enter"
	CommitBlur    CommitReason = "blur"
	CommitTimeout CommitReason = "timeout"
	CommitManual  CommitReason = "manual"
)

// Meta carries out-of-band feed hints.
type Meta struct {
	Composing *bool
}

// FeedInput is a single buffer snapshot fed to the recognizer.
type FeedInput struct {
	Text   string
	Cursor *int
	Meta   *Meta
}

// State is the snapshot returned by Recognizer.State.
type State struct {
	Text          string
	Revision      uint64
	Entities      []types.Entity
	PendingCommit bool
}

// DefaultWindowSize is used when Options.WindowSize is unset.
const DefaultWindowSize = 500

// Options configures a Recognizer.
type Options struct {
	Plugins    []plugin.Plugin
	Schedule   scheduler.Config
	Thresholds runner.Thresholds
	WindowSize int
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	return o
}

// Recognizer is the public engine described in spec.md §4.6 and §6.
type Recognizer struct {
	buf       *buffer.Buffer
	st        *store.Store
	em        *emitter.Emitter
	sch       *scheduler.Scheduler
	run       *runner.Runner
	windowSz  int
	destroyed atomic.Bool

	// cancelMu guards the per-mode cancel functions: starting a new pass
	// of a given mode cancels the previous pass of that same mode.
	cancelMu          sync.Mutex
	realtimeCtxCancel context.CancelFunc
	commitCtxCancel   context.CancelFunc

	// sem enforces at-most-one-executing-pass-per-mode (spec.md §5): a
	// later pass may still *start* (and cancel its predecessor) before the
	// predecessor has unwound, but the store-mutating tail of a pass never
	// overlaps a sibling of the same mode.
	realtimeSem *semaphore.Weighted
	commitSem   *semaphore.Weighted
}

// New constructs and wires a Recognizer. Construction-time plugin
// diagnostics (e.g. contract-version mismatches) are emitted once the
// caller has had a chance to register handlers via the returned
// Recognizer's On before any feed occurs; callers that want to observe
// them should register a diagnostic handler before the first Feed.
func New(opts Options) (*Recognizer, error) {
	opts = opts.withDefaults()

	buf := buffer.New()
	st, err := store.New()
	if err != nil {
		return nil, fmt.Errorf("constructing recognizer: %w", err)
	}
	em := emitter.New()
	rn := runner.New(opts.Plugins, opts.Thresholds)

	r := &Recognizer{
		buf:         buf,
		st:          st,
		em:          em,
		run:         rn,
		windowSz:    opts.WindowSize,
		realtimeSem: semaphore.NewWeighted(1),
		commitSem:   semaphore.NewWeighted(1),
	}
	r.sch = scheduler.New(opts.Schedule, r.onRealtimeFire, r.onCommitFire)

	for _, d := range rn.Diagnostics() {
		r.emitDiagnostic(d)
	}
	return r, nil
}

// Feed applies a buffer snapshot. A no-op once destroyed.
func (r *Recognizer) Feed(input FeedInput) {
	if r.destroyed.Load() {
		return
	}

	if input.Meta != nil && input.Meta.Composing != nil {
		r.sch.SetComposing(*input.Meta.Composing)
		if *input.Meta.Composing {
			return
		}
	}

	if r.buf.Update(input.Text, input.Cursor) {
		r.sch.ScheduleAnalysis()
	}
}

// Commit emits an info diagnostic and forces the commit phase immediately.
func (r *Recognizer) Commit(reason CommitReason) {
	if r.destroyed.Load() {
		return
	}
	r.emitDiagnostic(types.Diagnostic{
		Severity: types.SeverityInfo,
		Message:  fmt.Sprintf("Commit triggered: %s", reason),
		Source:   "recognizer",
	})
	r.sch.ForceCommit()
}

// State returns a snapshot of the current text, revision, entities, and
// whether a commit timer is pending.
func (r *Recognizer) State() State {
	if r.destroyed.Load() {
		return State{}
	}
	entities, err := r.st.GetAll()
	if err != nil {
		r.emitDiagnostic(types.Diagnostic{
			Severity: types.SeverityError,
			Message:  fmt.Sprintf("reading store state: %v", err),
			Source:   "recognizer",
		})
		entities = nil
	}
	return State{
		Text:          r.buf.Text(),
		Revision:      r.buf.Revision(),
		Entities:      entities,
		PendingCommit: r.sch.IsPendingCommit(),
	}
}

// On registers handler on channel.
func (r *Recognizer) On(channel types.Channel, handler emitter.Handler) emitter.SubscriptionID {
	return r.em.On(channel, handler)
}

// Off removes a registration made with On.
func (r *Recognizer) Off(channel types.Channel, id emitter.SubscriptionID) {
	r.em.Off(channel, id)
}

// Destroy aborts all outstanding passes, clears listeners and the store,
// and resets the buffer. Idempotent.
func (r *Recognizer) Destroy() {
	if !r.destroyed.CompareAndSwap(false, true) {
		return
	}
	r.sch.Destroy()

	r.cancelMu.Lock()
	if r.realtimeCtxCancel != nil {
		r.realtimeCtxCancel()
	}
	if r.commitCtxCancel != nil {
		r.commitCtxCancel()
	}
	r.cancelMu.Unlock()

	r.em.RemoveAllListeners(nil)
	_ = r.st.Clear()
	r.buf.Reset()
}

func (r *Recognizer) emitDiagnostic(d types.Diagnostic) {
	if r.destroyed.Load() {
		return
	}
	r.em.Emit(types.ChannelDiagnostic, d)
}

// onRealtimeFire is the Scheduler's realtime callback.
func (r *Recognizer) onRealtimeFire() {
	r.runPass(plugin.ModeRealtime)
}

// onCommitFire is the Scheduler's commit callback.
func (r *Recognizer) onCommitFire() {
	r.runPass(plugin.ModeCommit)
}

func (r *Recognizer) modeCancel(mode plugin.Mode) (context.Context, *semaphore.Weighted) {
	r.cancelMu.Lock()
	defer r.cancelMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	if mode == plugin.ModeRealtime {
		if r.realtimeCtxCancel != nil {
			r.realtimeCtxCancel()
		}
		r.realtimeCtxCancel = cancel
		return ctx, r.realtimeSem
	}
	if r.commitCtxCancel != nil {
		r.commitCtxCancel()
	}
	r.commitCtxCancel = cancel
	return ctx, r.commitSem
}

func (r *Recognizer) runPass(mode plugin.Mode) {
	if r.destroyed.Load() {
		return
	}

	passID := uuid.NewString()
	ctx, sem := r.modeCancel(mode)

	window := r.buf.GetWindow(r.windowSz)
	entities, err := r.st.GetAll()
	if err != nil {
		r.reportPassError(mode, passID, err)
		return
	}

	pctx := &plugin.Context{
		Text:     r.buf.Text(),
		Window:   window,
		Cursor:   r.buf.Cursor(),
		Mode:     mode,
		Entities: entities,
		OnEntity: func(c types.Candidate) {
			r.streamCandidate(ctx, sem, mode, c)
		},
	}

	var result plugin.Result
	if mode == plugin.ModeRealtime {
		result = r.run.RunRealtime(ctx, pctx)
	} else {
		result = r.run.RunCommit(ctx, pctx)
		for i := range result.Upsert {
			result.Upsert[i].Status = types.StatusConfirmed
		}
	}

	if ctx.Err() != nil {
		// Superseded by a newer pass of the same mode; drop our results.
		return
	}

	candidates := clampCandidates(result.Upsert, len(r.buf.Text()))

	if err := sem.Acquire(context.Background(), 1); err != nil {
		r.reportPassError(mode, passID, err)
		return
	}
	defer sem.Release(1)

	if r.destroyed.Load() {
		return
	}

	diff, err := r.st.Reconcile(candidates)
	if err != nil {
		r.reportPassError(mode, passID, err)
		return
	}
	r.emitDiff(diff)

	if mode == plugin.ModeCommit {
		r.emitValueChangeDiagnostics(entities, diff.Updated)

		promoted, err := r.st.ConfirmAll()
		if err != nil {
			r.reportPassError(mode, passID, err)
			return
		}
		for _, e := range promoted {
			r.em.Emit(types.ChannelEntity, types.EntityEvent{Entity: e, IsUpdate: true})
		}
	}
}

// streamCandidate implements the optional incremental-emission plugin
// capability (spec.md §4.5): an immediate single-candidate upsert and
// entity event, independent of the pass's final reconciliation. During a
// commit pass, a streamed candidate is forced to StatusConfirmed, mirroring
// the batch path's treatment of result.Upsert (spec.md §4.6).
func (r *Recognizer) streamCandidate(ctx context.Context, sem *semaphore.Weighted, mode plugin.Mode, c types.Candidate) {
	if ctx.Err() != nil || r.destroyed.Load() {
		return
	}
	if mode == plugin.ModeCommit {
		c.Status = types.StatusConfirmed
	}
	clamped, ok := clampOne(c, len(r.buf.Text()))
	if !ok {
		return
	}

	if err := sem.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer sem.Release(1)

	if r.destroyed.Load() {
		return
	}

	diff, err := r.st.Upsert([]types.Candidate{clamped})
	if err != nil {
		return
	}
	r.emitDiff(diff)
}

func (r *Recognizer) emitDiff(diff store.Diff) {
	for _, e := range diff.Removed {
		r.em.Emit(types.ChannelRemove, types.RemoveEvent{ID: e.ID, Key: e.Key})
	}
	for _, e := range diff.Added {
		r.em.Emit(types.ChannelEntity, types.EntityEvent{Entity: e, IsUpdate: false})
	}
	for _, e := range diff.Updated {
		r.em.Emit(types.ChannelEntity, types.EntityEvent{Entity: e, IsUpdate: true})
	}
}

// emitValueChangeDiagnostics implements SPEC_FULL.md §4.2's commit-phase
// value-change notice: for each entity the commit pass's reconciliation
// flagged as updated, describe how its Value changed against the pre-pass
// snapshot via store.DescribeValueChange and, if the value actually changed
// (as opposed to just its span, confidence, or status), emit an info
// diagnostic sourced "store".
func (r *Recognizer) emitValueChangeDiagnostics(prevSnapshot, updated []types.Entity) {
	if len(updated) == 0 {
		return
	}
	prevByKey := make(map[string]types.Entity, len(prevSnapshot))
	for _, e := range prevSnapshot {
		prevByKey[e.Key] = e
	}

	for _, next := range updated {
		prev, ok := prevByKey[next.Key]
		if !ok {
			continue
		}
		desc, err := store.DescribeValueChange(prev, next)
		if err != nil || desc == "" {
			continue
		}
		r.emitDiagnostic(types.Diagnostic{
			Severity: types.SeverityInfo,
			Message:  fmt.Sprintf("entity %s value changed:\n%s", next.Key, desc),
			Source:   "store",
		})
	}
}

func (r *Recognizer) reportPassError(mode plugin.Mode, passID string, err error) {
	r.emitDiagnostic(types.Diagnostic{
		Severity: types.SeverityError,
		Message:  fmt.Sprintf("pass %s (%s) failed: %v", passID, mode, err),
		Source:   "recognizer",
	})
}

// clampCandidates implements the "best-effort reconcile with span
// clamping" resolution of spec.md §9's stale-pass open question: any
// candidate whose span falls (even partially) outside the current text is
// clamped to it, and dropped entirely if clamping leaves it empty.
func clampCandidates(candidates []types.Candidate, textLen int) []types.Candidate {
	kept := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if clamped, ok := clampOne(c, textLen); ok {
			kept = append(kept, clamped)
		}
	}
	return kept
}

func clampOne(c types.Candidate, textLen int) (types.Candidate, bool) {
	clampedSpan, ok := c.Span.Clamp(textLen)
	if !ok {
		return types.Candidate{}, false
	}
	c.Span = clampedSpan
	return c, true
}
