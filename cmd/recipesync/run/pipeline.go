package run

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/GjhanAi/albion-recipes/internal/logger"
	"github.com/GjhanAi/albion-recipes/internal/stage"
)

// executePipeline runs the prepared stages for the envelope's action.
func executePipeline(ctx context.Context, in stage.Envelope, deps stage.Deps, progress *progressReporter) (stage.Envelope, error) {
	action := ""
	if in.Meta != nil && in.Meta.Config != nil {
		action = in.Meta.Config.Action
	}
	stages, err := PreparedActionStages(action, in.Meta)
	if err != nil {
		return stage.Envelope{}, err
	}
	return runStages(ctx, in, deps, stages, progress)
}

// runStages executes the provided list of stage names in order.
func runStages(ctx context.Context, in stage.Envelope, deps stage.Deps, stages []string, progress *progressReporter) (stage.Envelope, error) {
	if deps.Log == nil {
		deps.Log = logger.FromContext(ctx)
	}
	out := in
	var err error
	for _, name := range stages {
		out, err = progress.runStage(ctx, name, out, deps)
		if err != nil {
			return stage.Envelope{}, err
		}
	}
	return out, nil
}

// encodeJSON returns the JSON encoding string with HTML escaping disabled.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeJSONLine writes v as a single JSON line.
func writeJSONLine(w io.Writer, v any) error {
	s, err := encodeJSON(v)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// syncSummary is the single JSON line printed on success.
type syncSummary struct {
	OK        bool             `json:"ok"`
	Source    string           `json:"source,omitempty"`
	Method    string           `json:"method,omitempty"`
	Recipes   int              `json:"recipes"`
	Rows      int              `json:"rows"`
	Filtered  int              `json:"filtered,omitempty"`
	Artifacts []stage.Artifact `json:"artifacts"`
	Warnings  []stage.Error    `json:"warnings,omitempty"`
}

func summarize(out stage.Envelope) syncSummary {
	s := syncSummary{
		OK:        true,
		Recipes:   len(out.Recipes),
		Rows:      len(out.Rows),
		Filtered:  out.Filtered,
		Artifacts: out.Artifacts,
		Warnings:  out.Errors,
	}
	if out.Location != nil {
		s.Source = out.Location.String()
		s.Method = string(out.Location.Method)
	}
	if s.Artifacts == nil {
		s.Artifacts = []stage.Artifact{}
	}
	return s
}
