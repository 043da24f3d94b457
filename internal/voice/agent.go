package voice

import (
	"context"
	"errors"
	"io"

	"github.com/smiledental/reception-agent/internal/conversation"
	"github.com/smiledental/reception-agent/pkg/logging"
)

const retryPrompt = "Didn't catch that. Please try again."

// Agent runs a single conversation over an IO device until the caller exits.
type Agent struct {
	device IO
	engine *conversation.Engine
	logger *logging.Logger
}

func NewAgent(device IO, engine *conversation.Engine, logger *logging.Logger) *Agent {
	if logger == nil {
		logger = logging.Default()
	}
	return &Agent{device: device, engine: engine, logger: logger}
}

// Run speaks the greeting and then loops listen/respond until an exit phrase,
// end of input, or context cancellation.
func (a *Agent) Run(ctx context.Context) error {
	st := conversation.NewState()

	if err := a.device.Speak(ctx, a.engine.Greeting()); err != nil {
		return err
	}

	for {
		utterance, err := a.device.Listen(ctx)
		if err != nil {
			if NoInput(err) {
				if err := a.device.Speak(ctx, retryPrompt); err != nil {
					return err
				}
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if conversation.IsExitPhrase(utterance) {
			return a.device.Speak(ctx, a.engine.Farewell(st))
		}

		reply := a.engine.Turn(ctx, st, utterance)
		if err := a.device.Speak(ctx, reply); err != nil {
			return err
		}
	}
}
