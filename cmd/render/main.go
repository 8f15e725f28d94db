package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"github.com/jaki95/ambient-mixer/config"
	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/engine"
	"github.com/jaki95/ambient-mixer/internal/service"
	"github.com/jaki95/ambient-mixer/internal/storage"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to the configuration file")
	mixPath := flag.String("mix", "", "Path to a saved mix JSON file (required)")
	duration := flag.Duration("duration", 10*time.Minute, "Length of the render")
	format := flag.String("format", "wav", "Output format: wav, mp3, flac or m4a")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Validate required flags with explicit checks
	if *mixPath == "" {
		log.Fatal("Missing required flag: -mix")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	mix, err := readMix(*mixPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatal(err)
	}

	renderer := service.NewRenderer(engine.Config{
		SampleRate: cfg.Audio.SampleRate,
		WorkDir:    cfg.Audio.AssetDir,
		FFmpegPath: cfg.Audio.FFmpegPath,
		Sounds:     cfg.Audio.Sounds,
	}, store)

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(
				total,
				progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetTheme(progressbar.ThemeASCII),
				progressbar.OptionFullWidth(),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Rendering[reset] %d tracks...", mix.TrackCount())),
			)
		}
		_ = bar.Set(done)
	}

	location, err := renderer.Render(ctx, mix, *duration, *format, progress)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Rendered %s of mix %s to %s\n", *duration, mix.ID(), location)
}

func readMix(path string) (*domain.Mix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mix: %w", err)
	}

	var dto domain.MixDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse mix %s: %w", path, err)
	}

	mix, err := domain.FromDTO(dto)
	if err != nil {
		return nil, fmt.Errorf("invalid mix %s: %w", path, err)
	}
	return mix, nil
}
