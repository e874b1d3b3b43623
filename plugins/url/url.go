// Package url is a builtin regex plugin recognizing http(s) URLs.
package url

import (
	"context"
	"fmt"
	"regexp"

	"github.com/textsense/recognizer/pkg/plugin"
	"github.com/textsense/recognizer/pkg/types"
)

// Name is the registry key for this plugin.
const Name = "url"

const confidence = 0.95

var pattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Plugin matches http(s) URLs in realtime.
type Plugin struct{}

// New returns a ready-to-register url Plugin.
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
		// Trailing sentence punctuation is not part of the URL.
		for len(text) > 0 && (text[len(text)-1] == '.' || text[len(text)-1] == ',' || text[len(text)-1] == ')') {
			text = text[:len(text)-1]
			end--
		}
		if text == "" {
			continue
		}

		candidate := types.Candidate{
			Key:        fmt.Sprintf("url:%s:%d:%d", text, start, end),
			Kind:       types.KindURL,
			Span:       types.Span{Start: start, End: end},
			Text:       text,
			Value:      text,
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
