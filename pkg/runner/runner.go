// Package runner orchestrates plugin execution for a single pass: priority
// ordering, mode partitioning, sequential invocation with fault recovery,
// key-based merging, and confidence-threshold filtering. It is grounded on
// the teacher's pkg/diff.Syncer.Run/eventLoop/handleEvent, which processes
// an ordered list of operations through a context-cancellable pipeline and
// converts per-item failures into safe, non-aborting outcomes.
package runner

import (
	"context"
	"fmt"
	"sort"

	"github.com/blang/semver/v4"
	"github.com/samber/lo"

	"github.com/textsense/recognizer/pkg/plugin"
	"github.com/textsense/recognizer/pkg/types"
)

// Thresholds holds the minimum confidence a candidate needs to survive a
// merge in each mode.
type Thresholds struct {
	Realtime float64
	Commit   float64
}

// DefaultThresholds returns the spec.md-mandated defaults: 0.8 realtime,
// 0.5 commit.
func DefaultThresholds() Thresholds {
	return Thresholds{Realtime: 0.8, Commit: 0.5}
}

func (t Thresholds) withDefaults() Thresholds {
	if t.Realtime == 0 {
		t.Realtime = DefaultThresholds().Realtime
	}
	if t.Commit == 0 {
		t.Commit = DefaultThresholds().Commit
	}
	return t
}

// Runner holds the priority-ordered, mode-partitioned plugin lists.
type Runner struct {
	realtime    []plugin.Plugin
	commit      []plugin.Plugin
	thresholds  Thresholds
	diagnostics []types.Diagnostic
}

// New partitions plugins by mode, orders each partition ascending by
// Priority() (ties keep registration order), and skips any plugin whose
// ContractVersion() major component does not match
// plugin.SupportedContractMajor, recording a warning diagnostic for each
// skip.
func New(plugins []plugin.Plugin, thresholds Thresholds) *Runner {
	var diagnostics []types.Diagnostic
	compatible := make([]plugin.Plugin, 0, len(plugins))

	for _, p := range plugins {
		v, err := semver.Parse(p.ContractVersion())
		if err != nil || int(v.Major) != plugin.SupportedContractMajor {
			diagnostics = append(diagnostics, types.Diagnostic{
				Severity: types.SeverityWarning,
				Message: fmt.Sprintf(
					"plugin %q declares contract version %q, incompatible with supported major %d; skipping",
					p.Name(), p.ContractVersion(), plugin.SupportedContractMajor,
				),
				Source: "runner",
			})
			continue
		}
		compatible = append(compatible, p)
	}

	realtime, commit := partitionByMode(compatible)
	return &Runner{
		realtime:    orderByPriority(realtime),
		commit:      orderByPriority(commit),
		thresholds:  thresholds.withDefaults(),
		diagnostics: diagnostics,
	}
}

func partitionByMode(plugins []plugin.Plugin) (realtime, commit []plugin.Plugin) {
	for _, p := range plugins {
		switch p.Mode() {
		case plugin.ModeRealtime:
			realtime = append(realtime, p)
		case plugin.ModeCommit:
			commit = append(commit, p)
		}
	}
	return realtime, commit
}

func orderByPriority(plugins []plugin.Plugin) []plugin.Plugin {
	ordered := append([]plugin.Plugin(nil), plugins...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})
	return ordered
}

// Diagnostics returns any startup warnings accumulated while partitioning
// plugins (e.g. contract-version mismatches), for the Recognizer to emit
// once it is ready to publish events.
func (r *Runner) Diagnostics() []types.Diagnostic {
	return r.diagnostics
}

// RunRealtime invokes only the realtime plugins.
func (r *Runner) RunRealtime(ctx context.Context, pctx *plugin.Context) plugin.Result {
	pctx.Mode = plugin.ModeRealtime
	return r.run(ctx, pctx, r.realtime, r.thresholds.Realtime)
}

// RunCommit invokes the realtime plugins (so their provisional spans get a
// chance to be confirmed) followed by the commit plugins.
func (r *Runner) RunCommit(ctx context.Context, pctx *plugin.Context) plugin.Result {
	pctx.Mode = plugin.ModeCommit
	list := make([]plugin.Plugin, 0, len(r.realtime)+len(r.commit))
	list = append(list, r.realtime...)
	list = append(list, r.commit...)
	return r.run(ctx, pctx, list, r.thresholds.Commit)
}

func (r *Runner) run(ctx context.Context, pctx *plugin.Context, list []plugin.Plugin, threshold float64) plugin.Result {
	results := make([]plugin.Result, 0, len(list))
	for _, p := range list {
		results = append(results, invoke(ctx, p, pctx))
	}

	upsertByKey := make(map[string]types.Candidate)
	var order []string
	removeSet := make(map[string]struct{})

	for _, res := range results {
		for _, c := range res.Upsert {
			if _, exists := upsertByKey[c.Key]; !exists {
				order = append(order, c.Key)
			}
			upsertByKey[c.Key] = c
		}
		for _, key := range res.Remove {
			removeSet[key] = struct{}{}
		}
	}
	for key := range removeSet {
		delete(upsertByKey, key)
	}

	upsert := lo.FilterMap(order, func(key string, _ int) (types.Candidate, bool) {
		c, ok := upsertByKey[key]
		if !ok || c.Confidence < threshold {
			return types.Candidate{}, false
		}
		return c, true
	})

	return plugin.Result{Upsert: upsert, Remove: lo.Keys(removeSet)}
}

// invoke runs a single plugin, converting both a returned error and a
// recovered panic into an empty result so a faulty plugin never aborts the
// pass (spec.md §7, "Plugin fault").
func invoke(ctx context.Context, p plugin.Plugin, pctx *plugin.Context) (res plugin.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = plugin.Result{}
		}
	}()

	result, err := p.Run(ctx, pctx)
	if err != nil {
		return plugin.Result{}
	}
	return result
}
