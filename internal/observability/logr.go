package observability

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.opentelemetry.io/otel"
)

// Logr adapts a Logger to the logr interface used by the OpenTelemetry SDK.
// Loggers not created by this package are discarded.
func Logr(l Logger) logr.Logger {
	zl, ok := l.(*zapLogger)
	if !ok {
		return logr.Discard()
	}
	return zapr.NewLogger(zl.logger.WithOptions()).WithName("otel")
}

// InstallOTelLogger routes OpenTelemetry internal diagnostics (exporter
// failures, dropped spans) through the gateway logger.
func InstallOTelLogger(l Logger) {
	otel.SetLogger(Logr(l))
}
