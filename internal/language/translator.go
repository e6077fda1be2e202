package language

import "context"

// Translator normalizes user text into the assistant's working language
// and localizes responses back. Translation itself is out of scope for
// now; the interface exists so a real implementation can slot in without
// touching the turn pipeline.
type Translator interface {
	ToWorking(ctx context.Context, text string) (string, error)
	FromWorking(ctx context.Context, text string) (string, error)
}

// Passthrough returns text unchanged in both directions.
type Passthrough struct{}

func (Passthrough) ToWorking(_ context.Context, text string) (string, error) {
	return text, nil
}

func (Passthrough) FromWorking(_ context.Context, text string) (string, error) {
	return text, nil
}
