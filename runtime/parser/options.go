package parser

import (
	"log/slog"
	"time"
)

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// ParserConfig holds parser configuration
type ParserConfig struct {
	logger    *slog.Logger
	telemetry *ParseTelemetry
}

// WithLogger routes lexer debug tracing to logger
func WithLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.logger = logger
	}
}

// WithTelemetry fills t with counts and timings once parsing finishes
func WithTelemetry(t *ParseTelemetry) ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = t
	}
}

// ParseTelemetry holds parser performance metrics
type ParseTelemetry struct {
	LexTime        time.Duration // Time spent lexing
	ParseTime      time.Duration // Time spent building the AST
	TotalTime      time.Duration // Total parse time
	TokenCount     int           // Number of tokens including EOF
	StatementCount int           // Number of top-level statements
}
