// Copyright 2026 fanjia1024
// OpenTelemetry integration for distributed tracing

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// InitTracer 初始化 OpenTelemetry tracer
func InitTracer(config OTelConfig) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.ExportEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartUpdateSpan 开始一次记忆更新 span
func StartUpdateSpan(ctx context.Context, channelID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("research-collab")
	ctx, span := tracer.Start(ctx, "memory.update",
		trace.WithAttributes(
			attribute.String("channel.id", channelID),
		),
	)
	return ctx, span
}

// StartResolveSpan 开始一次引用解析 span
func StartResolveSpan(ctx context.Context, channelID, projectID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("research-collab")
	ctx, span := tracer.Start(ctx, "citation.resolve",
		trace.WithAttributes(
			attribute.String("channel.id", channelID),
			attribute.String("project.id", projectID),
		),
	)
	return ctx, span
}
