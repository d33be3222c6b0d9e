// Package command defines the primitive-only command stream emitted by the
// interpreter (spec §3.5, §6.3). Every command is serializable to JSON
// without post-processing.
package command

type Type string

const (
	VersionInfo Type = "VERSION_INFO"

	ProgramStart Type = "PROGRAM_START"
	ProgramEnd   Type = "PROGRAM_END"
	SetupStart   Type = "SETUP_START"
	SetupEnd     Type = "SETUP_END"
	LoopStart    Type = "LOOP_START"
	LoopEnd      Type = "LOOP_END"

	FunctionCall Type = "FUNCTION_CALL"

	PinMode     Type = "PIN_MODE"
	DigitalWrite Type = "DIGITAL_WRITE"
	AnalogWrite  Type = "ANALOG_WRITE"

	Delay             Type = "DELAY"
	DelayMicroseconds Type = "DELAY_MICROSECONDS"

	DigitalReadRequest Type = "DIGITAL_READ_REQUEST"
	AnalogReadRequest  Type = "ANALOG_READ_REQUEST"
	MillisRequest      Type = "MILLIS_REQUEST"
	MicrosRequest      Type = "MICROS_REQUEST"
	PulseInRequest     Type = "PULSE_IN_REQUEST"

	LibraryMethodRequest Type = "LIBRARY_METHOD_REQUEST"

	SerialPrint   Type = "SERIAL_PRINT"
	SerialPrintln Type = "SERIAL_PRINTLN"

	VarSet Type = "VAR_SET"
	VarGet Type = "VAR_GET"

	IfStatement     Type = "IF_STATEMENT"
	SwitchStatement Type = "SWITCH_STATEMENT"
	SwitchCase      Type = "SWITCH_CASE"

	LoopLimitReached Type = "LOOP_LIMIT_REACHED"

	ErrorCommand Type = "ERROR"
)

// Command is a flat record: a required type + timestamp, plus a small set of
// primitive (or homogeneous-array-of-primitive) fields, per spec §3.5/§6.3.
// A concrete struct (rather than map[string]any at every call site) is used
// so call sites read like typed literals; Fields still carries the
// type-specific payload since the command vocabulary is heterogeneous and
// spec §6.3 marks it non-exhaustive.
type Command struct {
	Type      Type
	Timestamp int64
	Fields    map[string]any
}

func New(t Type, timestamp int64, fields map[string]any) Command {
	if fields == nil {
		fields = map[string]any{}
	}
	return Command{Type: t, Timestamp: timestamp, Fields: fields}
}

// ----------------------------------------------------------------------------
// Typed constructors, one per §6.3 row actually emitted by pkg/interpreter.

func Version(ts int64, component, version, status string) Command {
	return New(VersionInfo, ts, map[string]any{"component": component, "version": version, "status": status})
}

func ProgramStartCmd(ts int64) Command { return New(ProgramStart, ts, map[string]any{"message": "Program started"}) }
func ProgramEndCmd(ts int64) Command   { return New(ProgramEnd, ts, map[string]any{"message": "Program ended"}) }
func SetupStartCmd(ts int64) Command   { return New(SetupStart, ts, map[string]any{"message": "setup() started"}) }
func SetupEndCmd(ts int64) Command     { return New(SetupEnd, ts, map[string]any{"message": "setup() finished"}) }
func LoopStartCmd(ts int64) Command    { return New(LoopStart, ts, map[string]any{"message": "loop() started"}) }
func LoopEndCmd(ts int64) Command      { return New(LoopEnd, ts, map[string]any{"message": "loop() finished"}) }

func FuncCallStart(ts int64, function string, args []any, iteration int) Command {
	return New(FunctionCall, ts, map[string]any{"function": function, "arguments": args, "iteration": iteration})
}

func FuncCallComplete(ts int64, function string, iteration int) Command {
	return New(FunctionCall, ts, map[string]any{"function": function, "iteration": iteration, "completed": true})
}

func PinModeCmd(ts int64, pin, mode int) Command {
	return New(PinMode, ts, map[string]any{"pin": pin, "mode": mode})
}

func DigitalWriteCmd(ts int64, pin, value int) Command {
	return New(DigitalWrite, ts, map[string]any{"pin": pin, "value": value})
}

func AnalogWriteCmd(ts int64, pin, value int) Command {
	return New(AnalogWrite, ts, map[string]any{"pin": pin, "value": value})
}

func DelayCmd(ts int64, duration int64) Command {
	return New(Delay, ts, map[string]any{"duration": duration, "actualDelay": 0})
}

func DelayMicrosCmd(ts int64, duration int64) Command {
	return New(DelayMicroseconds, ts, map[string]any{"duration": duration, "actualDelay": 0})
}

func DigitalReadReq(ts int64, pin int, requestID string) Command {
	return New(DigitalReadRequest, ts, map[string]any{"pin": pin, "requestId": requestID})
}

func AnalogReadReq(ts int64, pin int, requestID string) Command {
	return New(AnalogReadRequest, ts, map[string]any{"pin": pin, "requestId": requestID})
}

func MillisReq(ts int64, requestID string) Command {
	return New(MillisRequest, ts, map[string]any{"requestId": requestID})
}

func MicrosReq(ts int64, requestID string) Command {
	return New(MicrosRequest, ts, map[string]any{"requestId": requestID})
}

func PulseInReq(ts int64, pin int, requestID string) Command {
	return New(PulseInRequest, ts, map[string]any{"pin": pin, "requestId": requestID})
}

func LibraryMethodReq(ts int64, library, object, method string, args []any, requestID string) Command {
	return New(LibraryMethodRequest, ts, map[string]any{
		"library": library, "object": object, "method": method, "args": args, "requestId": requestID,
	})
}

func SerialPrintCmd(ts int64, data, format string) Command {
	return New(SerialPrint, ts, map[string]any{"data": data, "format": format})
}

func SerialPrintlnCmd(ts int64, data, format string) Command {
	return New(SerialPrintln, ts, map[string]any{"data": data, "format": format})
}

func VarSetCmd(ts int64, name string, value any) Command {
	return New(VarSet, ts, map[string]any{"name": name, "value": value})
}

func VarGetCmd(ts int64, name string, result any) Command {
	return New(VarGet, ts, map[string]any{"name": name, "result": result})
}

func IfStatementCmd(ts int64, condition any, result bool, branch string) Command {
	return New(IfStatement, ts, map[string]any{"condition": condition, "result": result, "branch": branch})
}

func SwitchStatementCmd(ts int64, discriminant any) Command {
	return New(SwitchStatement, ts, map[string]any{"discriminant": discriminant})
}

func SwitchCaseCmd(ts int64, caseValue any, matched bool) Command {
	return New(SwitchCase, ts, map[string]any{"caseValue": caseValue, "matched": matched})
}

func LoopLimitReachedCmd(ts int64, iteration int) Command {
	return New(LoopLimitReached, ts, map[string]any{"iteration": iteration})
}

// ErrorType categorizes ERROR commands per spec §7's taxonomy.
type ErrorType string

const (
	SourceError  ErrorType = "SourceError"
	LinkError    ErrorType = "LinkError"
	RuntimeError ErrorType = "RuntimeError"
	LibraryError ErrorType = "LibraryError"
	IOError      ErrorType = "IOError"
	LimitError   ErrorType = "LimitError"
)

func ErrorCmd(ts int64, message string, kind ErrorType) Command {
	return New(ErrorCommand, ts, map[string]any{"message": message, "errorType": string(kind)})
}
