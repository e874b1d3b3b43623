// Package datetime is a builtin regex plugin recognizing a small set of
// common date formats (ISO, slash-separated, and "Month Day, Year").
package datetime

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/textsense/recognizer/pkg/plugin"
	"github.com/textsense/recognizer/pkg/types"
)

// Name is the registry key for this plugin.
const Name = "datetime"

const confidence = 0.9

type matcher struct {
	pattern *regexp.Regexp
	layout  string
}

var matchers = []matcher{
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), "2006-01-02"},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), "1/2/2006"},
	{regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}, \d{4}\b`), "January 2, 2006"},
}

// Plugin matches dates in realtime.
type Plugin struct{}

// New returns a ready-to-register datetime Plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string            { return Name }
func (p *Plugin) Mode() plugin.Mode       { return plugin.ModeRealtime }
func (p *Plugin) Priority() int           { return plugin.DefaultPriority }
func (p *Plugin) ContractVersion() string { return "1.0.0" }

func (p *Plugin) Run(ctx context.Context, pctx *plugin.Context) (plugin.Result, error) {
	var result plugin.Result
	seen := make(map[int]bool)

	for _, m := range matchers {
		for _, idx := range m.pattern.FindAllStringIndex(pctx.Window.Text, -1) {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if seen[idx[0]] {
				continue
			}

			text := pctx.Window.Text[idx[0]:idx[1]]
			parsed, err := time.Parse(m.layout, text)
			if err != nil {
				continue
			}
			seen[idx[0]] = true

			start := pctx.Window.Offset + idx[0]
			end := pctx.Window.Offset + idx[1]

			candidate := types.Candidate{
				Key:        fmt.Sprintf("datetime:%s:%d:%d", parsed.Format("2006-01-02"), start, end),
				Kind:       types.KindDatetime,
				Span:       types.Span{Start: start, End: end},
				Text:       text,
				Value:      parsed.Format("2006-01-02"),
				Confidence: confidence,
				Status:     types.StatusProvisional,
			}
			result.Upsert = append(result.Upsert, candidate)
			if pctx.OnEntity != nil {
				pctx.OnEntity(candidate)
			}
		}
	}

	return result, nil
}
