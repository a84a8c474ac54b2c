package processmap

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/deepnoodle-ai/processmap"

// Span attribute keys.
const (
	RunIDKey      = attribute.Key("processmap.run.id")
	RunModeKey    = attribute.Key("processmap.run.mode")
	WorkflowIDKey = attribute.Key("processmap.workflow.id")
	StepIDKey     = attribute.Key("processmap.step.id")
	StepNameKey   = attribute.Key("processmap.step.name")
	StepTypeKey   = attribute.Key("processmap.step.type")
	SequenceKey   = attribute.Key("processmap.step.sequence")
	StatusKey     = attribute.Key("processmap.status")
	MockedKey     = attribute.Key("processmap.step.mocked")
)

// defaultTracer uses the globally installed provider, which is a no-op
// unless the caller registers one.
func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func setSpanError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}
