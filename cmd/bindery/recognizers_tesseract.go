//go:build tesseract

package main

import (
	"log/slog"

	"github.com/jackzampolin/bindery/internal/config"
	"github.com/jackzampolin/bindery/internal/ocr/tesseract"
	"github.com/jackzampolin/bindery/internal/recognition"
)

func init() {
	recognizerFactories[tesseract.Name] = func(p config.OCRProviderCfg, logger *slog.Logger) (recognition.Recognizer, error) {
		return tesseract.New(tesseract.Config{
			Languages: tesseract.ParseLanguages(p.Language),
			Logger:    logger,
		}), nil
	}
}
