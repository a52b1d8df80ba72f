package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger zerolog.Logger

const (
	logDirName  = "logs"
	logFileName = "tap-ilevel.log"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	logger = zerolog.New(newConsoleWriter(os.Stderr)).With().Timestamp().Logger()
}

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02T15:04:05Z07:00",
		FormatLevel: func(i any) string {
			return strings.ToUpper(fmt.Sprintf("%-5s", i))
		},
	}
}

// Init builds the global logger; when a config folder is set and file output
// is enabled, logs are additionally written as JSON into rotating files
func Init() {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString(constants.LogLevel)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	writers := []io.Writer{newConsoleWriter(os.Stderr)}
	folder := viper.GetString(constants.ConfigFolder)
	if folder != "" && viper.GetBool(constants.LogFileOutput) {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(folder, logDirName, fmt.Sprintf("%s_%s", time.Now().UTC().Format("2006-01-02_15-04-05"), logFileName)),
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

// SetOutput redirects the logger, used by tests to silence or capture output
func SetOutput(w io.Writer) {
	logger = zerolog.New(w).With().Timestamp().Logger()
}

func Info(v ...any) {
	logger.Info().Msg(fmt.Sprint(v...))
}

func Infof(format string, v ...any) {
	logger.Info().Msgf(format, v...)
}

func Debug(v ...any) {
	logger.Debug().Msg(fmt.Sprint(v...))
}

func Debugf(format string, v ...any) {
	logger.Debug().Msgf(format, v...)
}

func Warn(v ...any) {
	logger.Warn().Msg(fmt.Sprint(v...))
}

func Warnf(format string, v ...any) {
	logger.Warn().Msgf(format, v...)
}

func Error(v ...any) {
	logger.Error().Msg(fmt.Sprint(v...))
}

func Errorf(format string, v ...any) {
	logger.Error().Msgf(format, v...)
}

func Fatal(v ...any) {
	logger.Fatal().Msg(fmt.Sprint(v...))
}

func Fatalf(format string, v ...any) {
	logger.Fatal().Msgf(format, v...)
}

// LogState logs the state as raw JSON
func LogState(state any) {
	data, err := json.Marshal(state)
	if err != nil {
		Errorf("failed to marshal state: %s", err)
		return
	}
	logger.Info().RawJSON("state", data).Msg("state")
}
