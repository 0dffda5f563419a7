package services

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for service operations.
var (
	tracer = otel.Tracer("weft.services")
	meter  = otel.Meter("weft.services")
)

// Instruments for service operations.
var (
	operationLatency metric.Float64Histogram
	operationTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		operationLatency, err = meter.Float64Histogram(
			"weft_operation_duration_seconds",
			metric.WithDescription("Duration of service operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		operationTotal, err = meter.Int64Counter(
			"weft_operation_total",
			metric.WithDescription("Total number of service operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startOperationSpan creates a span for a service operation.
func startOperationSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("weft.operation", operation))
	return tracer.Start(ctx, "weft."+operation, trace.WithAttributes(attrs...))
}

// endOperationSpan records err on span and ends it.
func endOperationSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// recordOperationMetrics records metrics for a service operation.
func recordOperationMetrics(ctx context.Context, operation string, start time.Time, err error) {
	if initMetrics() != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	)

	operationLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	operationTotal.Add(ctx, 1, attrs)
}
