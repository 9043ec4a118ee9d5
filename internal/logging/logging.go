// Package logging sends the standard logger to stderr and a size-rotated
// panel log.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup redirects the standard logger. Close the returned writer on exit.
// An empty path leaves the logger on stderr.
func Setup(path string) (io.Closer, error) {
	log.SetFlags(log.LstdFlags)
	if path == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return rotator, nil
}
