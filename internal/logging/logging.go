// Package logging provides Lattice's process-wide structured logger,
// backed by zerolog. LATTICE_DEBUG raises the level to debug and
// LATTICE_LOG_FILE routes output through a rotating lumberjack sink
// instead of stderr.
package logging

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.Mutex
	logger zerolog.Logger
	inited bool
)

// L returns the process-wide logger, initializing it from the environment
// on first use.
func L() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !inited {
		logger = newLogger()
		inited = true
	}
	return &logger
}

// Reset discards the cached logger so the next L() call re-reads the
// environment. Exists for tests that toggle LATTICE_DEBUG/LATTICE_LOG_FILE.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	inited = false
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if os.Getenv("LATTICE_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	var writer zerolog.LevelWriter
	if path := os.Getenv("LATTICE_LOG_FILE"); path != "" {
		writer = zerolog.MultiLevelWriter(zerolog.ConsoleWriter{
			Out: &lumberjack.Logger{
				Filename:   path,
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
			NoColor: true,
		})
	} else {
		writer = zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
