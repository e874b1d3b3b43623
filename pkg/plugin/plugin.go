// Package plugin defines the contract the recognizer's Runner invokes:
// the same role the teacher's pkg/crud.Actions interface plays for Kong
// entities, generalized to an arbitrary, user-extensible set of matchers.
package plugin

import (
	"context"

	"github.com/textsense/recognizer/pkg/buffer"
	"github.com/textsense/recognizer/pkg/types"
)

// Mode is the analysis phase a plugin runs under.
type Mode string

const (
	ModeRealtime Mode = "realtime"
	ModeCommit   Mode = "commit"
)

// Context is the per-run context.PluginContext from spec.md §6, built by
// the Recognizer from the current Buffer and Store snapshot.
type Context struct {
	Text     string
	Window   buffer.Window
	Cursor   int
	Mode     Mode
	Entities []types.Entity

	// OnEntity, if set, lets a plugin stream candidates incrementally: the
	// Recognizer performs an immediate single-candidate upsert and emits
	// the corresponding entity event. The plugin must still return a final
	// Result with the cumulative candidate set, so removals can be
	// computed correctly by the Store's reconciliation.
	OnEntity func(types.Candidate)
}

// Result is a plugin's contribution to a pass: candidates to upsert, and
// (currently unhonored — see DESIGN.md) keys to remove explicitly.
type Result struct {
	Upsert []types.Candidate
	Remove []string
}

// Plugin is the contract every matcher (builtin or user-supplied)
// implements.
type Plugin interface {
	Name() string
	Mode() Mode
	// Priority orders plugins ascending within a mode; ties keep
	// registration order. Most plugins return DefaultPriority.
	Priority() int
	// ContractVersion is a semver string the Runner checks against its own
	// supported contract major version before invoking the plugin.
	ContractVersion() string
	Run(ctx context.Context, pctx *Context) (Result, error)
}

// DefaultPriority is the priority a plugin gets if it has no particular
// ordering preference.
const DefaultPriority = 100

// SupportedContractMajor is the major version of the Plugin contract this
// module implements. Plugins declaring an incompatible major version are
// skipped by the Runner with a warning diagnostic.
const SupportedContractMajor = 1
