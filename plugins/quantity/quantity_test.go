package quantity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textsense/recognizer/pkg/buffer"
	"github.com/textsense/recognizer/pkg/plugin"
	"github.com/textsense/recognizer/pkg/types"
)

func TestMatchesConvertSentence(t *testing.T) {
	text := "convert 10 km to mi"
	p := New()

	res, err := p.Run(context.Background(), &plugin.Context{
		Text:   text,
		Window: buffer.Window{Text: text, Offset: 0},
	})
	require.NoError(t, err)
	require.Len(t, res.Upsert, 1)

	c := res.Upsert[0]
	assert.Equal(t, types.KindQuantity, c.Kind)
	assert.Equal(t, "10 km", c.Text)
	assert.Equal(t, types.Span{Start: 8, End: 13}, c.Span)
	assert.Equal(t, types.StatusProvisional, c.Status)
}

func TestNoMatchWithoutUnit(t *testing.T) {
	text := "I have 10 apples"
	p := New()

	res, err := p.Run(context.Background(), &plugin.Context{
		Text:   text,
		Window: buffer.Window{Text: text, Offset: 0},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Upsert)
}

func TestWindowOffsetShiftsSpan(t *testing.T) {
	full := "preamble text here 5 kg more text"
	p := New()

	res, err := p.Run(context.Background(), &plugin.Context{
		Text:   full,
		Window: buffer.Window{Text: "here 5 kg more", Offset: 15},
	})
	require.NoError(t, err)
	require.Len(t, res.Upsert, 1)
	assert.Equal(t, full[res.Upsert[0].Span.Start:res.Upsert[0].Span.End], "5 kg")
}
