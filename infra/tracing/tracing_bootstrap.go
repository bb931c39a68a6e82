package tracing

import (
	"io"

	"industrium/misc"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"
)

// Bootstrap install the jaeger tracer configured from JAEGER_* environment
// variables as the opentracing global tracer. A no-op closer is returned
// when the environment carries no jaeger config.
func Bootstrap() io.Closer {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		logrus.Warnf("failed to parse jaeger config from env: %v", err)
		return noopCloser{}
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = misc.GetServiceName()
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Metrics(metrics.NullFactory))
	if err != nil {
		logrus.Warnf("failed to build jaeger tracer: %v", err)
		return noopCloser{}
	}
	opentracing.SetGlobalTracer(tracer)
	return closer
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
