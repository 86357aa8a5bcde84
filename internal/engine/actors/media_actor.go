package actors

import (
	stdctx "context"
	"log/slog"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"videotube/internal/media"
	"videotube/internal/utils"
)

const defaultDeleteTimeout = 30 * time.Second

type (
	// DeleteMediaMsg asks the actor to remove a previously uploaded object.
	DeleteMediaMsg struct {
		URL string
	}

	// DeleteMediaResult is only sent back when the request came through a future.
	DeleteMediaResult struct {
		URL string
		Err error
	}
)

// MediaActor serializes deletion of replaced avatars and cover images.
// Failures are logged and never reach the request that replaced the media.
type MediaActor struct {
	store   media.Store
	metrics *utils.MetricsCollector
	log     *slog.Logger
	timeout time.Duration
}

func NewMediaActor(store media.Store, metrics *utils.MetricsCollector, log *slog.Logger) *MediaActor {
	return &MediaActor{
		store:   store,
		metrics: metrics,
		log:     log.With("actor", "media"),
		timeout: defaultDeleteTimeout,
	}
}

func (a *MediaActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.log.Debug("media actor started")

	case *DeleteMediaMsg:
		startTime := time.Now()

		ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
		err := a.store.Delete(ctx, msg.URL)
		cancel()

		if err != nil {
			a.log.Warn("failed to delete old media", "url", msg.URL, "error", err)
		} else {
			a.log.Debug("deleted old media", "url", msg.URL)
		}
		if a.metrics != nil {
			a.metrics.AddOperationLatency("delete_media", time.Since(startTime))
		}

		if context.Sender() != nil {
			context.Respond(&DeleteMediaResult{URL: msg.URL, Err: err})
		}
	}
}
