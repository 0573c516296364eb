package telemetry_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/telemetry"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
)

type recordingLogger struct {
	embedded.Logger

	lock    sync.Mutex
	records []otellog.Record
}

func (l *recordingLogger) Emit(_ context.Context, record otellog.Record) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.records = append(l.records, record.Clone())
}

func (l *recordingLogger) Enabled(context.Context, otellog.EnabledParameters) bool {
	return true
}

type recordingProvider struct {
	embedded.LoggerProvider
	logger *recordingLogger
}

func (p *recordingProvider) Logger(string, ...otellog.LoggerOption) otellog.Logger {
	return p.logger
}

func TestLogHook(t *testing.T) {
	provider := &recordingProvider{logger: &recordingLogger{}}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(telemetry.NewLogHook(provider))

	logger.WithField("property", "abc").WithError(errors.New("boom")).Warn("audit failed")
	logger.Debug("debug entry")

	records := provider.logger.records
	require.Len(t, records, 2)

	require.Equal(t, "audit failed", records[0].Body().AsString())
	require.Equal(t, otellog.SeverityWarn, records[0].Severity())
	attrs := map[string]string{}
	records[0].WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	require.Equal(t, "abc", attrs["property"])
	require.Equal(t, "boom", attrs["error"])

	require.Equal(t, otellog.SeverityDebug, records[1].Severity())
}
