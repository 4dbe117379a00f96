package main

import (
	"log/slog"
	"sort"

	"github.com/jackzampolin/bindery/internal/config"
	"github.com/jackzampolin/bindery/internal/ocr/paddle"
	"github.com/jackzampolin/bindery/internal/ocr/vision"
	"github.com/jackzampolin/bindery/internal/recognition"
)

// recognizerFactory builds a recognizer from one provider entry.
type recognizerFactory func(p config.OCRProviderCfg, logger *slog.Logger) (recognition.Recognizer, error)

// recognizerFactories is keyed by provider type. Engines behind build tags
// add themselves in init.
var recognizerFactories = map[string]recognizerFactory{
	paddle.Name: func(p config.OCRProviderCfg, logger *slog.Logger) (recognition.Recognizer, error) {
		return paddle.New(paddle.Config{
			URL:        p.URL,
			Timeout:    p.TimeoutDuration(),
			MaxRetries: p.MaxRetries,
			Logger:     logger,
		}), nil
	},
	vision.Name: func(p config.OCRProviderCfg, logger *slog.Logger) (recognition.Recognizer, error) {
		return vision.New(vision.Config{
			APIKey:     config.ResolveEnvVars(p.APIKey),
			BaseURL:    p.URL,
			Model:      p.Model,
			MaxRetries: p.MaxRetries,
			Timeout:    p.TimeoutDuration(),
			Logger:     logger,
		})
	},
}

// buildRecognizers registers every enabled provider under its config name.
// Providers that cannot be built are logged and skipped.
func buildRecognizers(cfg *config.Config, logger *slog.Logger) *recognition.Registry {
	reg := recognition.NewRegistry()
	providers := cfg.EnabledOCRProviders()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := providers[name]
		typ := p.Type
		if typ == "" {
			typ = name
		}
		factory, ok := recognizerFactories[typ]
		if !ok {
			logger.Warn("OCR provider unavailable in this build", "provider", name, "type", typ)
			continue
		}
		rec, err := factory(p, logger)
		if err != nil {
			logger.Warn("failed to set up OCR provider", "provider", name, "error", err)
			continue
		}
		reg.RegisterAs(name, rec)
	}
	return reg
}
