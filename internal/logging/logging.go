package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Setup configures the global logger. format is "json" or "console".
func Setup(level, format string) {
	log.DefaultLogger = New(os.Stderr, level, format)
}

func New(w io.Writer, level, format string) log.Logger {
	logger := log.Logger{
		Level:      log.ParseLevel(strings.ToLower(level)),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	if strings.EqualFold(format, "json") {
		logger.Writer = &log.IOWriter{Writer: w}
		return logger
	}
	logger.Writer = &log.ConsoleWriter{
		Writer:         w,
		ColorOutput:    w == os.Stderr || w == os.Stdout,
		QuoteString:    true,
		EndWithMessage: true,
	}
	return logger
}
