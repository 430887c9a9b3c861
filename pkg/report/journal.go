// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	fileTimeLayout = "20060102_150405"
	lineTimeLayout = "2006-01-02 15:04:05"
)

var _ JournalInterface = (*Journal)(nil)

// Journal mirrors every line to the console and to an append-only log file,
// where each line is prefixed with its timestamp.
type Journal struct {
	logger *zap.Logger
	file   *os.File
	path   string
}

func (j *Journal) Println(line string) {
	j.logger.Info(line)
}

func (j *Journal) Printf(format string, args ...interface{}) {
	j.logger.Info(fmt.Sprintf(format, args...))
}

// Path is the log file location.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) Close() error {
	_ = j.logger.Sync()
	return j.file.Close()
}

// LogFileName builds "<prefix>__<input stem>__<timestamp>.txt".
func LogFileName(prefix, input string, now time.Time) string {
	parts := []string{prefix}
	if input != "" {
		base := filepath.Base(input)
		parts = append(parts, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	parts = append(parts, now.Format(fileTimeLayout))
	return strings.Join(parts, "__") + ".txt"
}

func encodeLineTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format(lineTimeLayout) + "]")
}

// NewJournal creates dir if needed and opens the run log inside it.
func NewJournal(console io.Writer, dir, prefix, input string, opts ...zap.Option) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, LogFileName(prefix, input, time.Now()))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	consoleEncoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
	})
	fileEncoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       encodeLineTime,
		ConsoleSeparator: " ",
	})

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(console), zapcore.DebugLevel),
		zapcore.NewCore(fileEncoder, zapcore.AddSync(f), zapcore.DebugLevel),
	)

	return &Journal{
		logger: zap.New(core, opts...),
		file:   f,
		path:   path,
	}, nil
}
