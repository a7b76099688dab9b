// Copyright 2024 The HKV Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package hkv

import (
	"github.com/cockroachdb/redact"
	"go.uber.org/zap"

	"github.com/hkvdb/hkv/engine"
)

// zapEngineLogger adapts a *zap.Logger to engine.Logger, the sink the
// engine adaptor writes its own diagnostics to.
type zapEngineLogger struct {
	l *zap.SugaredLogger
}

func newZapEngineLogger(l *zap.Logger) engine.Logger {
	return zapEngineLogger{l: l.Sugar()}
}

func (z zapEngineLogger) Infof(format string, args ...interface{})  { z.l.Infof(format, args...) }
func (z zapEngineLogger) Fatalf(format string, args ...interface{}) { z.l.Fatalf(format, args...) }

// redactKey formats a key path for a log line without leaking its content
// (key parts are user data): only the part count and byte lengths, which
// are safe to log, are shown.
func redactKey(parts [][]byte) redact.RedactableString {
	lens := make([]int, len(parts))
	for i, p := range parts {
		lens[i] = len(p)
	}
	return redact.Sprintf("key path with %d part(s), lengths %v", redact.Safe(len(parts)), redact.Safe(lens))
}
