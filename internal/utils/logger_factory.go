package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelDebugStringConstant         = "debug"
	logLevelInfoStringConstant          = "info"
	logLevelWarnStringConstant          = "warn"
	logLevelErrorStringConstant         = "error"
	unsupportedLogLevelTemplateConstant = "unsupported log level: %s"
	// LoggerNameConstant names every logger built by LoggerFactory.
	LoggerNameConstant = "git-manager"
	// DefaultLogFileConstant is the log file created in the current directory.
	DefaultLogFileConstant    = "git-manager.logs"
	logFileMaxSizeMegabytes   = 10
	logFileMaxBackups         = 3
	encoderTimeKeyConstant    = "time"
	encoderLevelKeyConstant   = "level"
	encoderNameKeyConstant    = "logger"
	encoderMessageKeyConstant = "message"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// ParseLogLevel converts user input into a supported LogLevel.
func ParseLogLevel(value string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(value)))
	if _, supported := logLevelMapping[level]; !supported {
		return "", fmt.Errorf(unsupportedLogLevelTemplateConstant, value)
	}
	return level, nil
}

// LoggerOptions configures the two sinks of the run logger.
// FileWriter and ConsoleWriter default to a rotating file at FilePath and to stderr.
type LoggerOptions struct {
	FilePath      string
	FileLevel     LogLevel
	ConsoleLevel  LogLevel
	FileWriter    io.Writer
	ConsoleWriter io.Writer
}

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct{}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger produces a named zap.Logger that tees a file core and a console core.
// The returned closer releases the log file and must be called once logging ends.
func (factory *LoggerFactory) CreateLogger(options LoggerOptions) (*zap.Logger, io.Closer, error) {
	fileLevel, fileLevelExists := logLevelMapping[options.FileLevel]
	if !fileLevelExists {
		return nil, nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, options.FileLevel)
	}
	consoleLevel, consoleLevelExists := logLevelMapping[options.ConsoleLevel]
	if !consoleLevelExists {
		return nil, nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, options.ConsoleLevel)
	}

	var fileCloser io.Closer = nopCloser{}
	fileWriter := options.FileWriter
	if fileWriter == nil {
		filePath := options.FilePath
		if len(strings.TrimSpace(filePath)) == 0 {
			filePath = DefaultLogFileConstant
		}
		rotatingFile := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    logFileMaxSizeMegabytes,
			MaxBackups: logFileMaxBackups,
		}
		fileWriter = rotatingFile
		fileCloser = rotatingFile
	}

	consoleWriter := options.ConsoleWriter
	if consoleWriter == nil {
		consoleWriter = os.Stderr
	}

	encoder := zapcore.NewConsoleEncoder(newEncoderConfiguration())
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(fileWriter), fileLevel),
		zapcore.NewCore(encoder.Clone(), zapcore.Lock(zapcore.AddSync(consoleWriter)), consoleLevel),
	)

	return zap.New(core).Named(LoggerNameConstant), fileCloser, nil
}

func newEncoderConfiguration() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        encoderTimeKeyConstant,
		LevelKey:       encoderLevelKeyConstant,
		NameKey:        encoderNameKeyConstant,
		MessageKey:     encoderMessageKeyConstant,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}
