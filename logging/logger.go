package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crytic/relayfuzz/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is instantiated when the fuzzer is created. Each
// module/package should create its own sub-logger. This allows to create unique logging instances depending on the
// use case.
var GlobalLogger *Logger

// Logger describes a custom logging object that can log events to any arbitrary channel in structured,
// unstructured with colors, and unstructured formats.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// structuredLogger describes a logger that will be used to output structured logs to any arbitrary channel.
	structuredLogger zerolog.Logger

	// structuredWriters describes the various channels that the output from the structuredLogger will go to.
	structuredWriters []io.Writer

	// unstructuredLogger describes a logger that will be used to stream un-colorized, unstructured output to any
	// arbitrary channel.
	unstructuredLogger zerolog.Logger

	// unstructuredWriters describes the various channels that the output from the unstructuredLogger will go to.
	unstructuredWriters []io.Writer

	// unstructuredColorLogger describes a logger that will be used to stream colorized, unstructured output to any
	// arbitrary channel.
	unstructuredColorLogger zerolog.Logger

	// unstructuredColorWriters describes the various channels that the output from the unstructuredColorLogger will
	// go to.
	unstructuredColorWriters []io.Writer

	// context describes the key-value pairs attached to every log event, such as the module name of a sub-logger.
	context []contextField
}

// contextField is a key-value pair attached to every event emitted by a Logger.
type contextField struct {
	key   string
	value string
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. By default, a logger that is instantiated
// with this function is not usable until a log channel is added. To add or remove channels that the logger
// streams logs to, call the Logger.AddWriter and Logger.RemoveWriter functions.
func NewLogger(level zerolog.Level) *Logger {
	return &Logger{
		level:                   level,
		structuredLogger:        zerolog.New(nil).Level(zerolog.Disabled),
		unstructuredLogger:      zerolog.New(nil).Level(zerolog.Disabled),
		unstructuredColorLogger: zerolog.New(nil).Level(zerolog.Disabled),
	}
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of
// this is for each module or service (e.g. the relay) to have its own logger so that logs are "grep-able".
// Writers added to the parent logger after this call are not propagated to the sub-logger.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	subLogger := &Logger{
		level:                    l.level,
		structuredWriters:        append([]io.Writer(nil), l.structuredWriters...),
		unstructuredWriters:      append([]io.Writer(nil), l.unstructuredWriters...),
		unstructuredColorWriters: append([]io.Writer(nil), l.unstructuredColorWriters...),
		context:                  append(append([]contextField(nil), l.context...), contextField{key: key, value: value}),
	}
	subLogger.rebuild()
	return subLogger
}

// AddWriter will add a writer to which log output will go to. If the format is UNSTRUCTURED then the colored flag
// determines whether the output will be colorized. If the writer was already added, this is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writerList(format, colored)
	for _, w := range *writers {
		if w == writer {
			return
		}
	}
	*writers = append(*writers, writer)
	l.rebuild()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist,
// this function is a no-op.
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writerList(format, colored)
	for i, w := range *writers {
		if w == writer {
			*writers = append((*writers)[:i], (*writers)[i+1:]...)
			break
		}
	}
	l.rebuild()
}

// writerList returns the list of writers for the given format and coloring.
func (l *Logger) writerList(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// rebuild recreates the underlying zerolog loggers from the current writers, level and context.
func (l *Logger) rebuild() {
	// Structured output gets timestamps, unstructured console output does not
	l.structuredLogger = l.newZerologLogger(l.structuredWriters, func(w io.Writer) io.Writer { return w }, true)
	l.unstructuredLogger = l.newZerologLogger(l.unstructuredWriters, func(w io.Writer) io.Writer {
		return setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level)
	}, false)
	l.unstructuredColorLogger = l.newZerologLogger(l.unstructuredColorWriters, func(w io.Writer) io.Writer {
		return colorConsoleWriter{
			colored: setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: false}, l.level),
			plain:   setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level),
		}
	}, false)
}

// colorConsoleWriter formats console output with ANSI codes only while coloring is enabled, so that
// colors.DisableColor also applies to loggers built before it was called.
type colorConsoleWriter struct {
	colored zerolog.ConsoleWriter
	plain   zerolog.ConsoleWriter
}

// Write formats and writes a single log event.
func (w colorConsoleWriter) Write(p []byte) (int, error) {
	if colors.Enabled() {
		return w.colored.Write(p)
	}
	return w.plain.Write(p)
}

// newZerologLogger creates a zerolog.Logger over the provided writers, each wrapped by wrap. If no writers are
// provided, the returned logger is disabled.
func (l *Logger) newZerologLogger(writers []io.Writer, wrap func(io.Writer) io.Writer, timestamp bool) zerolog.Logger {
	if len(writers) == 0 {
		return zerolog.New(nil).Level(zerolog.Disabled)
	}
	wrapped := make([]io.Writer, 0, len(writers))
	for _, w := range writers {
		wrapped = append(wrapped, wrap(w))
	}
	ctx := zerolog.New(zerolog.MultiLevelWriter(wrapped...)).Level(l.level).With()
	if timestamp {
		ctx = ctx.Timestamp()
	}
	for _, field := range l.context {
		ctx = ctx.Str(field.key, field.value)
	}
	return ctx.Logger()
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// Panic is a wrapper function that will log a panic event and then panic.
func (l *Logger) Panic(args ...any) {
	l.log(zerolog.PanicLevel, args...)
}

// log builds the colorized and non-colorized messages from args and sends them to every channel at the given level.
func (l *Logger) log(level zerolog.Level, args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	colorMsg, noColorMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	structuredLog := l.structuredLogger.WithLevel(level)
	unstructuredLog := l.unstructuredLogger.WithLevel(level)
	unstructuredColorLog := l.unstructuredColorLogger.WithLevel(level)

	// Chain the error, adding stack traces when debugging or panicking
	withStack := l.level <= zerolog.DebugLevel || level == zerolog.PanicLevel
	for _, event := range []*zerolog.Event{structuredLog, unstructuredLog, unstructuredColorLog} {
		if event == nil {
			continue
		}
		event.Err(err)
		if withStack {
			event.Stack()
		}
		if info != nil {
			event.Any("info", info)
		}
	}

	// Send off the logs. Events of disabled loggers are nil and Msg is a no-op on them.
	structuredLog.Msg(noColorMsg)
	unstructuredLog.Msg(noColorMsg)
	unstructuredColorLog.Msg(colorMsg)

	// zerolog's WithLevel does not panic for the panic level, so mirror zerolog.Logger.Panic semantics here
	if level == zerolog.PanicLevel {
		if err != nil {
			panic(fmt.Sprintf("%s: %v", noColorMsg, err))
		}
		panic(noColorMsg)
	}
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings
// and, optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be
// used for console logging while the second string will be a non-colorized one that can be used for file/structured
// logging. The error and the StructuredLogInfo can be used to add additional context to log messages.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	// Guard clause
	if len(args) == 0 {
		return "", "", nil, nil
	}

	// Initialize the base color context, the string buffers and the structured log info object
	colorCtx := colors.Reset
	colorMsg := make([]string, 0)
	noColorMsg := make([]string, 0)
	var info StructuredLogInfo
	var err error

	// Iterate through each argument in the list and switch on type
	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// If the argument is a color function, switch the current color context
			colorCtx = t
		case StructuredLogInfo:
			// Note that only one structured log info can be provided for each log message
			info = t
		case *LogBuffer:
			// Log buffers are expanded in place, keeping their own color context
			c, n, _, _ := buildMsgs(t.Args()...)
			colorMsg = append(colorMsg, c)
			noColorMsg = append(noColorMsg, n)
		case error:
			// Note that only one error can be provided for each log message
			err = t
		default:
			// In the base case, append the object to the two string buffers. The colored string buffer will have the
			// current color context applied to it.
			colorMsg = append(colorMsg, colorCtx(t))
			noColorMsg = append(noColorMsg, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(colorMsg, ""), strings.Join(noColorMsg, ""), err, info
}

// setupDefaultFormatting will update the console logger's formatting to the relayfuzz standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	// We will define a custom format for each level
	writer.FormatLevel = func(i any) string {
		// Create a level object for better switch logic
		level, err := zerolog.ParseLevel(fmt.Sprintf("%v", i))
		if err != nil {
			return fmt.Sprintf("%v", i)
		}

		// Switch on the level and return a custom, colored string
		switch level {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return colors.RedBold(zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			return colors.RedBold(zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			return colors.RedBold(zerolog.LevelPanicValue)
		default:
			return fmt.Sprintf("%v", i)
		}
	}

	// If we are above debug level, we want to get rid of the `module` component when logging to console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module", "campaign"}
	}

	return writer
}
