package recognizer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textsense/recognizer/pkg/plugin"
	"github.com/textsense/recognizer/pkg/runner"
	"github.com/textsense/recognizer/pkg/scheduler"
	"github.com/textsense/recognizer/pkg/types"
)

// fixedPlugin always returns the same result regardless of input; good
// enough to exercise the pipeline wiring without real matching logic.
type fixedPlugin struct {
	mode   plugin.Mode
	result plugin.Result
}

func (f *fixedPlugin) Name() string             { return "fixed" }
func (f *fixedPlugin) Mode() plugin.Mode        { return f.mode }
func (f *fixedPlugin) Priority() int            { return plugin.DefaultPriority }
func (f *fixedPlugin) ContractVersion() string  { return "1.0.0" }
func (f *fixedPlugin) Run(context.Context, *plugin.Context) (plugin.Result, error) {
	return f.result, nil
}

func newTestRecognizer(t *testing.T, plugins ...plugin.Plugin) *Recognizer {
	t.Helper()
	r, err := New(Options{
		Plugins:    plugins,
		Schedule:   scheduler.Config{RealtimeMs: 10_000, CommitAfterMs: 10_000},
		Thresholds: runner.DefaultThresholds(),
	})
	require.NoError(t, err)
	return r
}

func TestFeedSchedulesAndRealtimePassPopulatesStore(t *testing.T) {
	p := &fixedPlugin{mode: plugin.ModeRealtime, result: plugin.Result{
		Upsert: []types.Candidate{{Key: "k1", Kind: types.KindQuantity, Span: types.Span{Start: 0, End: 3}, Confidence: 0.9}},
	}}
	r := newTestRecognizer(t, p)
	defer r.Destroy()

	var mu sync.Mutex
	var added []types.EntityEvent
	r.On(types.ChannelEntity, func(event any) {
		mu.Lock()
		defer mu.Unlock()
		added = append(added, event.(types.EntityEvent))
	})

	r.Feed(FeedInput{Text: "100kg"})
	r.runPass(plugin.ModeRealtime)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, added, 1)
	assert.Equal(t, "k1", added[0].Entity.Key)
	assert.False(t, added[0].IsUpdate)
}

func TestCommitPromotesProvisionalEntities(t *testing.T) {
	p := &fixedPlugin{mode: plugin.ModeRealtime, result: plugin.Result{
		Upsert: []types.Candidate{{Key: "k1", Kind: types.KindQuantity, Span: types.Span{Start: 0, End: 3}, Confidence: 0.9}},
	}}
	r := newTestRecognizer(t, p)
	defer r.Destroy()

	r.Feed(FeedInput{Text: "100kg"})
	r.runPass(plugin.ModeRealtime)

	st := r.State()
	require.Len(t, st.Entities, 1)
	assert.Equal(t, types.StatusProvisional, st.Entities[0].Status)

	r.runPass(plugin.ModeCommit)
	st = r.State()
	require.Len(t, st.Entities, 1)
	assert.Equal(t, types.StatusConfirmed, st.Entities[0].Status)
}

func TestReconcileRemovesStaleEntitiesAcrossPasses(t *testing.T) {
	calls := 0
	p := &variablePlugin{fn: func() plugin.Result {
		calls++
		if calls == 1 {
			return plugin.Result{Upsert: []types.Candidate{{Key: "k1", Kind: types.KindQuantity, Span: types.Span{Start: 0, End: 3}, Confidence: 0.9}}}
		}
		return plugin.Result{}
	}}
	r := newTestRecognizer(t, p)
	defer r.Destroy()

	var mu sync.Mutex
	var removed []types.RemoveEvent
	r.On(types.ChannelRemove, func(event any) {
		mu.Lock()
		defer mu.Unlock()
		removed = append(removed, event.(types.RemoveEvent))
	})

	r.Feed(FeedInput{Text: "100kg"})
	r.runPass(plugin.ModeRealtime)
	require.Equal(t, 1, len(r.State().Entities))

	r.Feed(FeedInput{Text: "gone now"})
	r.runPass(plugin.ModeRealtime)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, removed, 1)
	assert.Equal(t, "k1", removed[0].Key)
	assert.Empty(t, r.State().Entities)
}

type variablePlugin struct {
	fn func() plugin.Result
}

func (v *variablePlugin) Name() string            { return "variable" }
func (v *variablePlugin) Mode() plugin.Mode       { return plugin.ModeRealtime }
func (v *variablePlugin) Priority() int           { return plugin.DefaultPriority }
func (v *variablePlugin) ContractVersion() string { return "1.0.0" }
func (v *variablePlugin) Run(context.Context, *plugin.Context) (plugin.Result, error) {
	return v.fn(), nil
}

func TestComposingGateSuppressesScheduling(t *testing.T) {
	r := newTestRecognizer(t)
	defer r.Destroy()

	composing := true
	r.Feed(FeedInput{Text: "hello", Meta: &Meta{Composing: &composing}})
	assert.False(t, r.sch.IsPendingCommit())

	composing = false
	r.Feed(FeedInput{Text: "hello", Meta: &Meta{Composing: &composing}})
	assert.True(t, r.sch.IsPendingCommit())
}

func TestCommitForcesImmediatePass(t *testing.T) {
	p := &fixedPlugin{mode: plugin.ModeCommit, result: plugin.Result{
		Upsert: []types.Candidate{{Key: "k1", Kind: types.KindEmail, Span: types.Span{Start: 0, End: 7}, Confidence: 0.9}},
	}}
	r := newTestRecognizer(t, p)
	defer r.Destroy()

	r.Feed(FeedInput{Text: "a@b.com"})
	r.Commit(CommitManual)
	require.Len(t, r.State().Entities, 1)
}

func TestDestroyIsIdempotentAndClearsState(t *testing.T) {
	r := newTestRecognizer(t)
	r.Feed(FeedInput{Text: "hello"})
	r.Destroy()
	r.Destroy()

	st := r.State()
	assert.Equal(t, State{}, st)
}

func TestFeedAndStateAreNoOpsAfterDestroy(t *testing.T) {
	r := newTestRecognizer(t)
	r.Destroy()

	r.Feed(FeedInput{Text: "still typing"})
	assert.Equal(t, State{}, r.State())
}

func TestOffRemovesHandler(t *testing.T) {
	p := &fixedPlugin{mode: plugin.ModeRealtime, result: plugin.Result{
		Upsert: []types.Candidate{{Key: "k1", Kind: types.KindQuantity, Span: types.Span{Start: 0, End: 3}, Confidence: 0.9}},
	}}
	r := newTestRecognizer(t, p)
	defer r.Destroy()

	var count int
	id := r.On(types.ChannelEntity, func(event any) { count++ })
	r.Off(types.ChannelEntity, id)

	r.Feed(FeedInput{Text: "100kg"})
	r.runPass(plugin.ModeRealtime)
	assert.Equal(t, 0, count)
}

func TestStaleSpanCandidateIsClampedNotDropped(t *testing.T) {
	p := &fixedPlugin{mode: plugin.ModeRealtime, result: plugin.Result{
		Upsert: []types.Candidate{{Key: "k1", Kind: types.KindQuantity, Span: types.Span{Start: 0, End: 100}, Confidence: 0.9}},
	}}
	r := newTestRecognizer(t, p)
	defer r.Destroy()

	r.Feed(FeedInput{Text: "100kg"})
	r.runPass(plugin.ModeRealtime)

	require.Len(t, r.State().Entities, 1)
	assert.Equal(t, 5, r.State().Entities[0].Span.End)
}

func TestOutOfRangeCandidateIsDropped(t *testing.T) {
	p := &fixedPlugin{mode: plugin.ModeRealtime, result: plugin.Result{
		Upsert: []types.Candidate{{Key: "k1", Kind: types.KindQuantity, Span: types.Span{Start: 10, End: 20}, Confidence: 0.9}},
	}}
	r := newTestRecognizer(t, p)
	defer r.Destroy()

	r.Feed(FeedInput{Text: "100kg"})
	r.runPass(plugin.ModeRealtime)
	assert.Empty(t, r.State().Entities)
}

// commitVariablePlugin is a commit-mode plugin whose result varies call to
// call, for exercising the commit pass's value-change diagnostic.
type commitVariablePlugin struct {
	fn func() plugin.Result
}

func (v *commitVariablePlugin) Name() string            { return "commit-variable" }
func (v *commitVariablePlugin) Mode() plugin.Mode       { return plugin.ModeCommit }
func (v *commitVariablePlugin) Priority() int           { return plugin.DefaultPriority }
func (v *commitVariablePlugin) ContractVersion() string { return "1.0.0" }
func (v *commitVariablePlugin) Run(context.Context, *plugin.Context) (plugin.Result, error) {
	return v.fn(), nil
}

func TestCommitValueChangeEmitsStoreDiagnostic(t *testing.T) {
	calls := 0
	p := &commitVariablePlugin{fn: func() plugin.Result {
		calls++
		amount := 10
		if calls > 1 {
			amount = 12
		}
		return plugin.Result{Upsert: []types.Candidate{{
			Key:        "k1",
			Kind:       types.KindQuantity,
			Span:       types.Span{Start: 0, End: 5},
			Confidence: 0.9,
			Value:      map[string]any{"amount": amount},
		}}}
	}}
	r := newTestRecognizer(t, p)
	defer r.Destroy()

	var mu sync.Mutex
	var storeDiagnostics []types.Diagnostic
	r.On(types.ChannelDiagnostic, func(event any) {
		d := event.(types.Diagnostic)
		if d.Source != "store" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		storeDiagnostics = append(storeDiagnostics, d)
	})

	r.Feed(FeedInput{Text: "10 kg"})
	r.runPass(plugin.ModeCommit)

	mu.Lock()
	require.Empty(t, storeDiagnostics)
	mu.Unlock()

	r.Feed(FeedInput{Text: "12 kg"})
	r.runPass(plugin.ModeCommit)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, storeDiagnostics, 1)
	assert.Equal(t, types.SeverityInfo, storeDiagnostics[0].Severity)
	assert.Contains(t, storeDiagnostics[0].Message, "k1")
}

func TestStreamedCandidateIsConfirmedDuringCommitPass(t *testing.T) {
	p := &fixedPlugin{mode: plugin.ModeCommit}
	r := newTestRecognizer(t, p)
	defer r.Destroy()

	r.Feed(FeedInput{Text: "10 kg"})
	ctx, sem := r.modeCancel(plugin.ModeCommit)
	r.streamCandidate(ctx, sem, plugin.ModeCommit, types.Candidate{
		Key:        "k1",
		Kind:       types.KindQuantity,
		Span:       types.Span{Start: 0, End: 5},
		Confidence: 0.9,
		Status:     types.StatusProvisional,
	})

	require.Len(t, r.State().Entities, 1)
	assert.Equal(t, types.StatusConfirmed, r.State().Entities[0].Status)
}
