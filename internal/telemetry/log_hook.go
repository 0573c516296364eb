package telemetry

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	otellog "go.opentelemetry.io/otel/log"
)

var severities = map[logrus.Level]otellog.Severity{
	logrus.PanicLevel: otellog.SeverityFatal4,
	logrus.FatalLevel: otellog.SeverityFatal,
	logrus.ErrorLevel: otellog.SeverityError,
	logrus.WarnLevel:  otellog.SeverityWarn,
	logrus.InfoLevel:  otellog.SeverityInfo,
	logrus.DebugLevel: otellog.SeverityDebug,
	logrus.TraceLevel: otellog.SeverityTrace,
}

// LogHook emits every logrus entry as an otel log record.
type LogHook struct {
	logger otellog.Logger
}

func NewLogHook(provider otellog.LoggerProvider) *LogHook {
	return &LogHook{provider.Logger(serviceName)}
}

func (h *LogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *LogHook) Fire(entry *logrus.Entry) error {
	var record otellog.Record
	record.SetTimestamp(entry.Time)
	record.SetSeverity(severities[entry.Level])
	record.SetSeverityText(entry.Level.String())
	record.SetBody(otellog.StringValue(entry.Message))

	attrs := make([]otellog.KeyValue, 0, len(entry.Data))
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			attrs = append(attrs, otellog.String(k, err.Error()))
			continue
		}
		attrs = append(attrs, otellog.String(k, fmt.Sprintf("%v", v)))
	}
	record.AddAttributes(attrs...)

	ctx := entry.Context
	if ctx == nil {
		ctx = context.Background()
	}
	h.logger.Emit(ctx, record)
	return nil
}
