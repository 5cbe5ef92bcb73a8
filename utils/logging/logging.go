package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

type LogCode string

const (
	SYSTEM LogCode = "SYSTEM"

	AUTH_LOGIN  LogCode = "AUTH_LOGIN"
	AUTH_LOGOUT LogCode = "AUTH_LOGOUT"

	ARTWORK_CREATE LogCode = "ARTWORK_CREATE"
	ARTWORK_UPDATE LogCode = "ARTWORK_UPDATE"
	ARTWORK_DELETE LogCode = "ARTWORK_DELETE"
	ARTWORK_VERIFY LogCode = "ARTWORK_VERIFY"

	BLOB_STORE LogCode = "BLOB_STORE"
)

// VictoriaLogs has fixed field name for time (_time) and message(_msg). This function maps fields msg -> _msg and time -> _time.
func convertKeysToVictoriaLogs(keys []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{Key: "_time", Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05"))}
	}
	if a.Key == slog.MessageKey {
		return slog.Attr{Key: "_msg", Value: a.Value}
	}
	return a
}

func GetVictoriaLogsOptions(addSource bool) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: convertKeysToVictoriaLogs,
		AddSource:   addSource,
	}
}

// Logs are written as json to logFile for ingestion and as text to stderr.
func InitLogging(logFile io.Writer, service string) {
	jsonHandler := slog.NewJSONHandler(logFile, GetVictoriaLogsOptions(true))
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(slogmulti.Fanout(
		jsonHandler.WithAttrs([]slog.Attr{slog.String("service", service)}),
		textHandler,
	))
	slog.SetDefault(logger)

	slog.Info("logging initialized", "service", service, "code", SYSTEM)
}
