package store

import (
	"encoding/json"
	"fmt"

	"github.com/Kong/gojsondiff"
	"github.com/Kong/gojsondiff/formatter"

	"github.com/textsense/recognizer/pkg/types"
)

// DescribeValueChange renders a human-readable description of how an
// entity's Value changed across an update, for use in commit-phase
// diagnostics. It mirrors the teacher's own pkg/diff, which exists for the
// same purpose: explaining *why* a reconciliation step fired to a human.
func DescribeValueChange(prev, next types.Entity) (string, error) {
	prevMap, err := toJSONMap(prev.Value)
	if err != nil {
		return "", fmt.Errorf("encoding previous value: %w", err)
	}
	nextMap, err := toJSONMap(next.Value)
	if err != nil {
		return "", fmt.Errorf("encoding next value: %w", err)
	}

	differ := gojsondiff.New()
	diff := differ.CompareObjects(prevMap, nextMap)
	if diff == nil || !diff.Modified() {
		return "", nil
	}

	asciiFormatter := formatter.NewAsciiFormatter(prevMap, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       false,
	})
	out, err := asciiFormatter.Format(diff)
	if err != nil {
		return "", fmt.Errorf("formatting value diff: %w", err)
	}
	return out, nil
}

// toJSONMap round-trips v through JSON so gojsondiff (which operates on
// map[string]interface{}) can compare arbitrary plugin-owned values. A
// non-object value is wrapped under a single "value" key.
func toJSONMap(v any) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err == nil {
		return m, nil
	}
	return map[string]interface{}{"value": v}, nil
}
