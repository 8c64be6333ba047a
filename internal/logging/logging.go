// ABOUTME: Global zap logger setup
// ABOUTME: Selects dev or prod config by LOG_LEVEL and captures stdlib log output
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init initializes the global sugared logger based on LOG_LEVEL and redirects
// the standard library logger into zap, so library packages logging through
// plain log.Printf land in the same stream. Safe to call multiple times.
func Init() *zap.SugaredLogger {
	once.Do(func() {
		level := strings.ToLower(os.Getenv("LOG_LEVEL"))
		var logger *zap.Logger
		if level == "debug" {
			l, _ := zap.NewDevelopment()
			logger = l
		} else {
			l, _ := zap.NewProduction()
			logger = l
		}
		_ = zap.RedirectStdLog(logger)
		sugar = logger.Sugar()
	})
	return sugar
}

// InitFile reroutes all logging to the given file and returns the logger.
// Used when the terminal belongs to the TUI. Replaces the logger installed
// by Init; call before spawning goroutines that log.
func InitFile(path string) (*zap.SugaredLogger, error) {
	level := strings.ToLower(os.Getenv("LOG_LEVEL"))
	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	_ = zap.RedirectStdLog(logger)
	sugar = logger.Sugar()
	return sugar, nil
}

// Sugar returns the initialized sugared logger. Call Init first.
func Sugar() *zap.SugaredLogger { return sugar }

func init() {
	Init()
}
