package log

import (
	"bytes"
	"regexp"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// ToolLogAdapter is an io.Writer that logs the output of an external
// build tool, one log line per output line. Compiler diagnostics are
// raised to warn or error level.
type ToolLogAdapter struct {
	logger       kitlog.Logger
	levelFunc    func(kitlog.Logger) kitlog.Logger
	extraKeyVals []interface{} // log.With expects an interface, not string
}

type Option func(*ToolLogAdapter)

func WithKeyValue(key, value string) Option {
	return func(l *ToolLogAdapter) {
		l.extraKeyVals = append(l.extraKeyVals, key, value)
	}
}

func WithLevelFunc(lf func(kitlog.Logger) kitlog.Logger) Option {
	return func(l *ToolLogAdapter) {
		l.levelFunc = lf
	}
}

// sourceLocationRegexp matches the file:line(:col) prefix gcc and
// friends put on diagnostics.
var sourceLocationRegexp = regexp.MustCompile(`^[\w./\\-]+\.\w+:\d+(:\d+)?`)

func extractSourceLocation(msg string) string {
	return sourceLocationRegexp.FindString(msg)
}

func NewToolLogAdapter(logger kitlog.Logger, opts ...Option) *ToolLogAdapter {
	l := &ToolLogAdapter{
		logger:       logger,
		levelFunc:    level.Debug,
		extraKeyVals: []interface{}{},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *ToolLogAdapter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte("\n")) {
		msg := strings.TrimSpace(string(line))
		if msg == "" {
			continue
		}

		lf := l.levelFunc
		switch {
		case strings.Contains(msg, "error:"):
			lf = level.Error
		case strings.Contains(msg, "warning:"):
			lf = level.Warn
		}

		keyvals := append(append([]interface{}{}, l.extraKeyVals...), "msg", msg)
		if loc := extractSourceLocation(msg); loc != "" {
			keyvals = append(keyvals, "source", loc)
		}

		if err := lf(l.logger).Log(keyvals...); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
