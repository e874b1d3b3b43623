// Package quantity is a builtin regex plugin recognizing "<number> <unit>"
// mentions against a fixed unit table. It is an ordinary user of the plugin
// contract (spec.md §1: "external collaborators"), not part of the core
// engine.
package quantity

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/textsense/recognizer/pkg/plugin"
	"github.com/textsense/recognizer/pkg/types"
)

// Name is the registry key for this plugin.
const Name = "quantity"

const confidence = 0.92

var pattern = regexp.MustCompile(
	`(?i)\b(\d+(?:\.\d+)?)\s?(kilometers?|km|miles?|mi|kilograms?|kg|centimeters?|cm|` +
		`millimeters?|mm|pounds?|lb|ounces?|oz|yards?|yd|gallons?|gal|milliliters?|ml|` +
		`liters?|l|grams?|g|feet|ft|inch(?:es)?|in|meters?|m)\b`,
)

// Value is the structured payload attached to each quantity candidate.
type Value struct {
	Amount float64
	Unit   string
}

// Plugin matches quantities in realtime; the commit phase re-runs it (via
// the runner's realtime re-run step) to confirm provisional spans.
type Plugin struct{}

// New returns a ready-to-register quantity Plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string            { return Name }
func (p *Plugin) Mode() plugin.Mode       { return plugin.ModeRealtime }
func (p *Plugin) Priority() int           { return plugin.DefaultPriority }
func (p *Plugin) ContractVersion() string { return "1.0.0" }

func (p *Plugin) Run(ctx context.Context, pctx *plugin.Context) (plugin.Result, error) {
	var result plugin.Result

	matches := pattern.FindAllStringSubmatchIndex(pctx.Window.Text, -1)
	for _, m := range matches {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		numStr := pctx.Window.Text[m[2]:m[3]]
		unit := pctx.Window.Text[m[4]:m[5]]
		amount, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			continue
		}

		start := pctx.Window.Offset + m[0]
		end := pctx.Window.Offset + m[1]
		text := pctx.Window.Text[m[0]:m[1]]

		candidate := types.Candidate{
			Key:        fmt.Sprintf("quantity:%s:%s:%d:%d", numStr, unit, start, end),
			Kind:       types.KindQuantity,
			Span:       types.Span{Start: start, End: end},
			Text:       text,
			Value:      Value{Amount: amount, Unit: unit},
			Confidence: confidence,
			Status:     types.StatusProvisional,
		}
		result.Upsert = append(result.Upsert, candidate)
		if pctx.OnEntity != nil {
			pctx.OnEntity(candidate)
		}
	}

	return result, nil
}
