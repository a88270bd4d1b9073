package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes every emitted event to the structured log. It is the
// default fan-out target until an external delivery channel is configured.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, topic string, payload []byte) error {
	n.Log.Info().Str("topic", topic).RawJSON("payload", payload).Msg("domain event")
	return nil
}
