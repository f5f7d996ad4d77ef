package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newSpanRecorder installs a recording tracer provider and returns the
// recorder. The provider is shut down when the test ends.
func newSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func singleEndedSpan(t *testing.T, recorder *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d ended spans, want 1", len(spans))
	}
	return spans[0]
}

// attrValue returns the string value of the attribute, or "" when the
// key is absent.
func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value.AsString()
		}
	}
	return ""
}

func TestStartDBSpan(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		operation DBOperation
		wantName  string
	}{
		{"query sessions", "sessions", DBOperationQuery, "query sessions"},
		{"insert review", "session_reviews", DBOperationInsert, "insert session_reviews"},
		{"update reputation", "reviewer_reputation", DBOperationUpdate, "update reviewer_reputation"},
		{"delete attendance", "session_attendees", DBOperationDelete, "delete session_attendees"},
		{"exec migration", "migrations", DBOperationExec, "exec migrations"},
		{"no table", "", DBOperationQuery, "query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := newSpanRecorder(t)

			_, endSpan := StartDBSpan(context.Background(), tt.table, tt.operation)
			endSpan(nil)

			span := singleEndedSpan(t, recorder)
			if span.Name() != tt.wantName {
				t.Errorf("span name = %q, want %q", span.Name(), tt.wantName)
			}
			if got := attrValue(span, "db.system"); got != "postgresql" {
				t.Errorf("db.system = %q, want postgresql", got)
			}
			if got := attrValue(span, "db.operation"); got != string(tt.operation) {
				t.Errorf("db.operation = %q, want %q", got, tt.operation)
			}
			if got := attrValue(span, "db.sql.table"); got != tt.table {
				t.Errorf("db.sql.table = %q, want %q", got, tt.table)
			}
		})
	}
}

func TestStartDBSpanRecordsError(t *testing.T) {
	recorder := newSpanRecorder(t)
	queryErr := errors.New("connection reset")

	_, endSpan := StartDBSpan(context.Background(), "sessions", DBOperationQuery)
	endSpan(queryErr)

	span := singleEndedSpan(t, recorder)
	if span.Status().Code.String() != "Error" {
		t.Errorf("status = %s, want Error", span.Status().Code)
	}
	if span.Status().Description != queryErr.Error() {
		t.Errorf("status description = %q, want %q", span.Status().Description, queryErr)
	}
}

func TestStartSpan(t *testing.T) {
	t.Run("success leaves status unset", func(t *testing.T) {
		recorder := newSpanRecorder(t)

		_, endSpan := StartSpan(context.Background(), "compute_reliability_index")
		endSpan(nil)

		span := singleEndedSpan(t, recorder)
		if span.Name() != "compute_reliability_index" {
			t.Errorf("span name = %q", span.Name())
		}
		if code := span.Status().Code.String(); code != "Unset" && code != "Ok" {
			t.Errorf("status = %s, want Unset or Ok", code)
		}
	})

	t.Run("error sets error status", func(t *testing.T) {
		recorder := newSpanRecorder(t)

		_, endSpan := StartSpan(context.Background(), "compute_reliability_index")
		endSpan(errors.New("no attendance data"))

		span := singleEndedSpan(t, recorder)
		if span.Status().Code.String() != "Error" {
			t.Errorf("status = %s, want Error", span.Status().Code)
		}
	})
}

func TestAddEvent(t *testing.T) {
	recorder := newSpanRecorder(t)

	ctx, span := otel.Tracer("test").Start(context.Background(), "get_recommendations")
	AddEvent(ctx, "cache_hit",
		attribute.String("cache_key", "recommend:u1:12"),
		attribute.Int("ttl", 300),
	)
	span.End()

	events := singleEndedSpan(t, recorder).Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Name != "cache_hit" {
		t.Errorf("event name = %q, want cache_hit", events[0].Name)
	}
	if len(events[0].Attributes) != 2 {
		t.Errorf("got %d event attributes, want 2", len(events[0].Attributes))
	}
}

func TestSetAttributes(t *testing.T) {
	recorder := newSpanRecorder(t)

	ctx, span := otel.Tracer("test").Start(context.Background(), "get_recommendations")
	SetAttributes(ctx,
		attribute.String("user_id", "u_123"),
		attribute.String("endpoint", "/recommendations"),
	)
	span.End()

	ended := singleEndedSpan(t, recorder)
	if got := attrValue(ended, "user_id"); got != "u_123" {
		t.Errorf("user_id = %q, want u_123", got)
	}
	if got := attrValue(ended, "endpoint"); got != "/recommendations" {
		t.Errorf("endpoint = %q, want /recommendations", got)
	}
}
