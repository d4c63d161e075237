package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// createTracerProvider 创建 TracerProvider
func (m *Manager) createTracerProvider(res *resource.Resource) (*trace.TracerProvider, error) {
	exporter := m.spanExporter
	if exporter == nil {
		var err error
		exporter, err = m.createSpanExporter()
		if err != nil {
			return nil, fmt.Errorf("create span exporter failed: %w", err)
		}
	}

	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(m.createSampler()),
	}
	if m.syncExport {
		opts = append(opts, trace.WithSyncer(exporter))
	} else {
		opts = append(opts, trace.WithBatcher(exporter))
	}

	return trace.NewTracerProvider(opts...), nil
}

func (m *Manager) createSpanExporter() (trace.SpanExporter, error) {
	switch m.config.Exporter.Type {
	case "stdout":
		var opts []stdouttrace.Option
		if m.config.Exporter.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		return stdouttrace.New(opts...)
	case "noop":
		return noopExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", m.config.Exporter.Type)
	}
}

// createSampler 创建 Sampler
func (m *Manager) createSampler() trace.Sampler {
	switch m.config.Sampler.Type {
	case "always_on":
		return trace.AlwaysSample()
	case "always_off":
		return trace.NeverSample()
	case "trace_id_ratio":
		return trace.TraceIDRatioBased(m.config.Sampler.Ratio)
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}

// noopExporter 丢弃所有 span
type noopExporter struct{}

func (noopExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }

func (noopExporter) Shutdown(context.Context) error { return nil }
