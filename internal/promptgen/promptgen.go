// Package promptgen renders the IVR prompts to WAV files so the menu can
// play them as file sources.
package promptgen

import (
	"callautomation-server/internal/ivr/processor"
	"callautomation-server/internal/observability"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrEmptyAudio = errors.New("synthesizer returned no audio")

// Synthesizer turns text into a WAV file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Generator struct {
	synth  Synthesizer
	dir    string
	logger *observability.Logger
}

func New(synth Synthesizer, dir string, logger *observability.Logger) *Generator {
	return &Generator{synth: synth, dir: dir, logger: logger}
}

// Render writes one file per prompt. Existing files are kept unless
// overwrite is set.
func (g *Generator) Render(ctx context.Context, prompts []processor.Prompt, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	written := make([]string, 0, len(prompts))
	for _, prompt := range prompts {
		path := filepath.Join(g.dir, processor.PromptFileName(prompt))
		pctx := observability.WithFields(ctx, observability.Field{Key: "prompt", Value: prompt.Name})

		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				g.logger.Info(pctx, "prompt already rendered, skipping")
				continue
			}
		}

		audio, err := g.synth.Synthesize(ctx, prompt.Text)
		if err != nil {
			return written, fmt.Errorf("failed to synthesize %s: %w", prompt.Name, err)
		}
		if len(audio) == 0 {
			return written, fmt.Errorf("%s: %w", prompt.Name, ErrEmptyAudio)
		}
		if err := os.WriteFile(path, audio, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		g.logger.Info(pctx, "prompt rendered")
		written = append(written, path)
	}
	return written, nil
}
