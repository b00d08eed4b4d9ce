// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// Forked from github.com/zondax/ledger-go - NO GOLEM DEPENDENCY
// Licensed under the Apache License, Version 2.0

package ledger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

func init() {
	initLogger()
}

func initLogger() {
	log = NewLogger(getLogLevel()).Sugar()
}

// NewLogger builds the development logger used by the package at the given
// level (debug, info, warn or error; anything else means info).
func NewLogger(level string) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	switch strings.ToLower(level) {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// SetLogger replaces the package logger. A nil logger silences output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	log = l.Sugar()
}

func getLogLevel() string {
	level := os.Getenv("LEDGER_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	return strings.ToLower(level)
}
