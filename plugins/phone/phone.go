// Package phone is a builtin regex plugin recognizing phone numbers in
// common North American and international formats.
package phone

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/textsense/recognizer/pkg/plugin"
	"github.com/textsense/recognizer/pkg/types"
)

// Name is the registry key for this plugin.
const Name = "phone"

const confidence = 0.85

var pattern = regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?(?:\(\d{3}\)[\s.\-]?|\d{3}[\s.\-])\d{3}[\s.\-]\d{4}`)

// Plugin matches phone numbers in realtime.
type Plugin struct{}

// New returns a ready-to-register phone Plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string            { return Name }
func (p *Plugin) Mode() plugin.Mode       { return plugin.ModeRealtime }
func (p *Plugin) Priority() int           { return plugin.DefaultPriority }
func (p *Plugin) ContractVersion() string { return "1.0.0" }

func (p *Plugin) Run(ctx context.Context, pctx *plugin.Context) (plugin.Result, error) {
	var result plugin.Result

	matches := pattern.FindAllStringIndex(pctx.Window.Text, -1)
	for _, m := range matches {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		start := pctx.Window.Offset + m[0]
		end := pctx.Window.Offset + m[1]
		text := pctx.Window.Text[m[0]:m[1]]
		normalized := normalize(text)

		candidate := types.Candidate{
			Key:        fmt.Sprintf("phone:%s:%d:%d", normalized, start, end),
			Kind:       types.KindPhone,
			Span:       types.Span{Start: start, End: end},
			Text:       text,
			Value:      normalized,
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

func normalize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
