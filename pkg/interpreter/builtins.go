package interpreter

import (
	"math"

	"arduinoast.dev/core/pkg/command"
)

// callBuiltin dispatches the free-function Arduino API: the host-backed
// calls (spec §4.7.3's "External (host-backed)" list minus the
// library-instance methods, which go through evalMethodCall instead) and the
// locally computed math helpers (min, max, abs, constrain, map, pow, sqrt,
// sin, cos, tan). The bool result reports whether name named a recognized
// builtin at all.
func (it *Interpreter) callBuiltin(name string, args []Value) (Value, bool) {
	switch name {
	case "pinMode":
		if len(args) >= 2 {
			it.emit(command.PinModeCmd(it.now, int(toInt(args[0])), int(toInt(args[1]))))
		}
		return Void(), true
	case "digitalWrite":
		if len(args) >= 2 {
			it.emit(command.DigitalWriteCmd(it.now, int(toInt(args[0])), int(toInt(args[1]))))
		}
		return Void(), true
	case "analogWrite":
		if len(args) >= 2 {
			it.emit(command.AnalogWriteCmd(it.now, int(toInt(args[0])), int(toInt(args[1]))))
		}
		return Void(), true
	case "delay":
		var ms int64
		if len(args) >= 1 {
			ms = toInt(args[0])
		}
		it.emit(command.DelayCmd(it.now, ms))
		return Void(), true
	case "delayMicroseconds":
		var us int64
		if len(args) >= 1 {
			us = toInt(args[0])
		}
		it.emit(command.DelayMicrosCmd(it.now, us))
		return Void(), true
	case "digitalRead":
		pin := 0
		if len(args) >= 1 {
			pin = int(toInt(args[0]))
		}
		id := it.requests.NewID(string(command.DigitalReadRequest), it.now)
		return it.awaitResponse(command.DigitalReadReq(it.now, pin, id), id, it.defaultTimeoutMs), true
	case "analogRead":
		pin := 0
		if len(args) >= 1 {
			pin = int(toInt(args[0]))
		}
		id := it.requests.NewID(string(command.AnalogReadRequest), it.now)
		return it.awaitResponse(command.AnalogReadReq(it.now, pin, id), id, it.defaultTimeoutMs), true
	case "millis":
		id := it.requests.NewID(string(command.MillisRequest), it.now)
		return it.awaitResponse(command.MillisReq(it.now, id), id, it.timerTimeoutMs), true
	case "micros":
		id := it.requests.NewID(string(command.MicrosRequest), it.now)
		return it.awaitResponse(command.MicrosReq(it.now, id), id, it.timerTimeoutMs), true
	case "pulseIn":
		pin := 0
		if len(args) >= 1 {
			pin = int(toInt(args[0]))
		}
		id := it.requests.NewID(string(command.PulseInRequest), it.now)
		return it.awaitResponse(command.PulseInReq(it.now, pin, id), id, it.defaultTimeoutMs), true
	case "tone", "noTone", "attachInterrupt", "detachInterrupt":
		// Recognized but not surfaced in the command vocabulary (spec §6.3
		// does not enumerate a command for them); accepted as harmless no-ops
		// rather than raised as undefined-function errors.
		return Void(), true
	case "min":
		if len(args) >= 2 {
			if toNumber(args[0]) < toNumber(args[1]) {
				return args[0], true
			}
			return args[1], true
		}
		return Void(), true
	case "max":
		if len(args) >= 2 {
			if toNumber(args[0]) > toNumber(args[1]) {
				return args[0], true
			}
			return args[1], true
		}
		return Void(), true
	case "abs":
		if len(args) >= 1 {
			n := toNumber(args[0])
			if n < 0 {
				n = -n
			}
			return numericResult(n, args[0].Kind == KindFloat), true
		}
		return Void(), true
	case "constrain":
		if len(args) >= 3 {
			v, lo, hi := toNumber(args[0]), toNumber(args[1]), toNumber(args[2])
			if v < lo {
				v = lo
			}
			if v > hi {
				v = hi
			}
			return numericResult(v, args[0].Kind == KindFloat), true
		}
		return Void(), true
	case "map":
		if len(args) >= 5 {
			x, inMin, inMax, outMin, outMax := toNumber(args[0]), toNumber(args[1]), toNumber(args[2]), toNumber(args[3]), toNumber(args[4])
			if inMax == inMin {
				return Int(0), true
			}
			return Int(int64((x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin)), true
		}
		return Void(), true
	case "pow":
		if len(args) >= 2 {
			return Float(math.Pow(toNumber(args[0]), toNumber(args[1]))), true
		}
		return Void(), true
	case "sqrt":
		if len(args) >= 1 {
			return Float(math.Sqrt(toNumber(args[0]))), true
		}
		return Void(), true
	case "sin":
		if len(args) >= 1 {
			return Float(math.Sin(toNumber(args[0]))), true
		}
		return Void(), true
	case "cos":
		if len(args) >= 1 {
			return Float(math.Cos(toNumber(args[0]))), true
		}
		return Void(), true
	case "tan":
		if len(args) >= 1 {
			return Float(math.Tan(toNumber(args[0]))), true
		}
		return Void(), true
	}
	return Void(), false
}
