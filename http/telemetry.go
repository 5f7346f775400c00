package http

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/freekieb7/webserver/http"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	requestCnt     metric.Int64Counter
	responseBytes  metric.Int64Counter
	activeSessions metric.Int64UpDownCounter
)

func init() {
	var err error
	requestCnt, err = meter.Int64Counter("webserver.requests",
		metric.WithDescription("The number of requests by status code"),
		metric.WithUnit("{request}"))
	if err != nil {
		panic(err)
	}

	responseBytes, err = meter.Int64Counter("webserver.response.bytes",
		metric.WithDescription("Body bytes written to clients"),
		metric.WithUnit("By"))
	if err != nil {
		panic(err)
	}

	activeSessions, err = meter.Int64UpDownCounter("webserver.sessions.active",
		metric.WithDescription("The number of open sessions"),
		metric.WithUnit("{session}"))
	if err != nil {
		panic(err)
	}
}
