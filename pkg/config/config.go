// Package config loads a Recognizer's Options from a YAML document,
// validating it against a fixed JSON schema and resolving plugin names
// against the builtin registry. It is grounded on the teacher's
// pkg/file.getContent: read bytes, decode YAML, validate structure, and
// report every schema violation at once rather than only the first. Plugin
// names are resolved afterwards; resolution stops at the first unknown name.
package config

import (
	"fmt"
	"strings"

	"github.com/ettle/strcase"
	"github.com/xeipuuv/gojsonschema"
	"sigs.k8s.io/yaml"

	"github.com/textsense/recognizer/pkg/recognizer"
	"github.com/textsense/recognizer/pkg/runner"
	"github.com/textsense/recognizer/pkg/scheduler"
	"github.com/textsense/recognizer/plugins/registry"
)

// schemaJSON is the structural contract a config document must satisfy
// before its fields are trusted: plugin names are strings, intervals and
// thresholds are numbers, nothing extra is silently accepted.
const schemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "plugins": { "type": "array", "items": { "type": "string" } },
    "windowSize": { "type": "integer", "minimum": 1 },
    "schedule": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "realtimeMs": { "type": "integer", "minimum": 0 },
        "commitAfterMs": { "type": "integer", "minimum": 0 }
      }
    },
    "thresholds": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "realtime": { "type": "number", "minimum": 0, "maximum": 1 },
        "commit": { "type": "number", "minimum": 0, "maximum": 1 }
      }
    }
  }
}`

// document is the raw shape of a config YAML file, one field per Options
// knob, using the YAML-conventional lowerCamelCase keys.
type document struct {
	Plugins    []string `json:"plugins"`
	WindowSize int      `json:"windowSize"`
	Schedule   struct {
		RealtimeMs    int `json:"realtimeMs"`
		CommitAfterMs int `json:"commitAfterMs"`
	} `json:"schedule"`
	Thresholds struct {
		Realtime float64 `json:"realtime"`
		Commit   float64 `json:"commit"`
	} `json:"thresholds"`
}

// Load decodes a YAML config document into recognizer.Options, validating
// it against schemaJSON and resolving plugin names (case- and separator-
// insensitively, via strcase) against the builtin registry.
func Load(data []byte) (recognizer.Options, error) {
	jsonBytes, err := yaml.YAMLToJSON(data)
	if err != nil {
		return recognizer.Options{}, fmt.Errorf("parsing config: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(jsonBytes),
	)
	if err != nil {
		return recognizer.Options{}, fmt.Errorf("validating config: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return recognizer.Options{}, fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return recognizer.Options{}, fmt.Errorf("decoding config: %w", err)
	}

	names := make([]string, len(doc.Plugins))
	for i, n := range doc.Plugins {
		names[i] = strcase.ToSnake(n)
	}
	plugins, err := registry.Resolve(names)
	if err != nil {
		return recognizer.Options{}, fmt.Errorf("resolving plugins: %w", err)
	}

	return recognizer.Options{
		Plugins: plugins,
		Schedule: scheduler.Config{
			RealtimeMs:    doc.Schedule.RealtimeMs,
			CommitAfterMs: doc.Schedule.CommitAfterMs,
		},
		Thresholds: runner.Thresholds{
			Realtime: doc.Thresholds.Realtime,
			Commit:   doc.Thresholds.Commit,
		},
		WindowSize: doc.WindowSize,
	}, nil
}
