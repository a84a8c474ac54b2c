package processmap

import (
	"strings"

	"go.jetify.com/typeid"
)

// Synthesizer produces the representative output of an unmocked step from
// its resolved inputs.
type Synthesizer func(step *Step, inputs map[string]any) map[string]any

var defaultSynthesizers = map[StepType]Synthesizer{
	StepTypeTrigger:      synthesizeTrigger,
	StepTypeStorage:      synthesizeStorage,
	StepTypeTransform:    synthesizeTransform,
	StepTypeExternalCall: synthesizeExternalCall,
	StepTypeNotification: synthesizeNotification,
	StepTypeOther:        synthesizeOther,
}

func synthesizeTrigger(step *Step, inputs map[string]any) map[string]any {
	return map[string]any{
		"eventId":   newGeneratedID("evt"),
		"eventType": eventTypeName(step.Name),
		"payload":   inputs,
	}
}

func synthesizeStorage(step *Step, inputs map[string]any) map[string]any {
	return map[string]any{
		"recordId": newGeneratedID("rec"),
		"created":  true,
		"updated":  false,
	}
}

func synthesizeTransform(step *Step, inputs map[string]any) map[string]any {
	return map[string]any{
		"transformedData": inputs,
		"extractedItems":  []any{},
	}
}

func synthesizeExternalCall(step *Step, inputs map[string]any) map[string]any {
	return map[string]any{
		"statusCode": 200,
		"response":   map[string]any{"success": true},
		"success":    true,
	}
}

func synthesizeNotification(step *Step, inputs map[string]any) map[string]any {
	return map[string]any{
		"sent":           true,
		"notificationId": newGeneratedID("ntf"),
	}
}

func synthesizeOther(step *Step, inputs map[string]any) map[string]any {
	return map[string]any{
		"success": true,
		"data":    inputs,
	}
}

// eventTypeName lowercases a step name and joins its words with underscores.
func eventTypeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// newGeneratedID returns a new, globally unique id with the given prefix.
func newGeneratedID(prefix string) string {
	id, err := typeid.WithPrefix(prefix)
	if err != nil {
		panic(err)
	}
	return id.String()
}
