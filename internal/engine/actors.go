package engine

import (
	"log/slog"

	"github.com/asynkron/protoactor-go/actor"

	"videotube/internal/engine/actors"
	"videotube/internal/media"
	"videotube/internal/utils"
)

// Engine owns the background actors. Request handlers never wait on them.
type Engine struct {
	system     *actor.ActorSystem
	mediaActor *actor.PID
}

func NewEngine(system *actor.ActorSystem, store media.Store, metrics *utils.MetricsCollector, log *slog.Logger) *Engine {
	context := system.Root

	// Spawn media cleanup actor
	mediaProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewMediaActor(store, metrics, log)
	})
	mediaPID := context.Spawn(mediaProps)

	return &Engine{
		system:     system,
		mediaActor: mediaPID,
	}
}

// Discard schedules deletion of a replaced media object and returns at once.
func (e *Engine) Discard(url string) {
	if url == "" {
		return
	}
	e.system.Root.Send(e.mediaActor, &actors.DeleteMediaMsg{URL: url})
}

// Shutdown lets queued deletions finish, then stops the actor.
func (e *Engine) Shutdown() {
	_ = e.system.Root.PoisonFuture(e.mediaActor).Wait()
}
