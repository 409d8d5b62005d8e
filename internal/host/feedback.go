package host

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rtpcraft/randomtp/internal/types"
)

// LogFeedback renders participant feedback as log lines.
type LogFeedback struct{}

func NewLogFeedback() *LogFeedback {
	return &LogFeedback{}
}

func (LogFeedback) Notify(ctx context.Context, id, message string) {
	log.Ctx(ctx).Info().Str("participant_id", id).Msg(message)
}

func (LogFeedback) PlayTick(ctx context.Context, id string, remaining int) {
	log.Ctx(ctx).Info().
		Str("participant_id", id).
		Int("remaining", remaining).
		Msg("Countdown tick")
}

func (LogFeedback) PlayArrival(ctx context.Context, id string, loc types.Location) {
	log.Ctx(ctx).Info().
		Str("participant_id", id).
		Stringer("destination", loc).
		Msg("Arrived")
}

func (LogFeedback) PlayCancel(ctx context.Context, id string, cause types.CancelCause) {
	log.Ctx(ctx).Info().
		Str("participant_id", id).
		Str("cause", string(cause)).
		Msg("Teleport cancelled")
}
