package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// zeroLogger adapts zerolog to the identity.Logger port.
type zeroLogger struct {
	log zerolog.Logger
}

func (z zeroLogger) Debug(format string, args ...any) {
	z.log.Debug().Msg(render(format, args...))
}

func (z zeroLogger) Info(format string, args ...any) {
	z.log.Info().Msg(render(format, args...))
}

func (z zeroLogger) Warn(format string, args ...any) {
	z.log.Warn().Msg(render(format, args...))
}

func (z zeroLogger) Error(format string, args ...any) {
	z.log.Error().Msg(render(format, args...))
}

// render tolerates both printf-style calls and trailing key/value pairs.
func render(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	if strings.Contains(format, "%") {
		return fmt.Sprintf(format, args...)
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, format)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, " ")
}
