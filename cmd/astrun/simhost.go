package main

import (
	"time"

	"arduinoast.dev/core/pkg/command"
	"arduinoast.dev/core/pkg/interpreter"
)

// simHost answers the interpreter's *_REQUEST commands with simulated values:
// digital pins read LOW, analog pins read mid-scale, millis/micros report
// wall-clock time since the host process started, and library method calls
// return a zero value. It exists so astrun can run a sketch end-to-end
// without a real board attached.
type simHost struct {
	start time.Time
}

func newSimHost() *simHost {
	return &simHost{start: time.Now()}
}

func (h *simHost) handle(it *interpreter.Interpreter, c command.Command) {
	id, _ := c.Fields["requestId"].(string)
	if id == "" {
		return
	}

	switch c.Type {
	case command.DigitalReadRequest:
		it.HandleResponse(id, 0)
	case command.AnalogReadRequest:
		it.HandleResponse(id, 512)
	case command.MillisRequest:
		it.HandleResponse(id, time.Since(h.start).Milliseconds())
	case command.MicrosRequest:
		it.HandleResponse(id, time.Since(h.start).Microseconds())
	case command.PulseInRequest:
		it.HandleResponse(id, int64(0))
	case command.LibraryMethodRequest:
		it.HandleResponse(id, 0)
	}
}
