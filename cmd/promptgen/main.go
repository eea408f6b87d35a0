// Command promptgen renders the IVR prompts to WAV files in BASE_MEDIA_PATH
// with OpenAI text-to-speech.
package main

import (
	"callautomation-server/internal/clients/openai"
	"callautomation-server/internal/config"
	"callautomation-server/internal/ivr/processor"
	"callautomation-server/internal/observability"
	"callautomation-server/internal/promptgen"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	overwrite := flag.Bool("overwrite", false, "re-render prompts that already exist")
	voice := flag.String("voice", "", "text-to-speech voice")
	flag.Parse()

	logger := observability.NewLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ProfilePromptGen)
	if err != nil {
		logger.Fatal(ctx, "failed to load configuration", err)
	}

	speech := openai.NewSpeechClient(cfg.Services.OpenAIAPIKey, *voice, logger)
	written, err := promptgen.New(speech, cfg.Media.BasePath, logger).Render(ctx, processor.Prompts, *overwrite)
	if err != nil {
		logger.Fatal(ctx, "failed to render prompts", err)
	}
	logger.Info(ctx, fmt.Sprintf("rendered %d prompts to %s", len(written), cfg.Media.BasePath))
}
