package command_test

import (
	"testing"

	"arduinoast.dev/core/pkg/command"
)

func TestTypedConstructors(t *testing.T) {
	test := func(cmd command.Command, expectedType command.Type, field string, expected any) {
		if cmd.Type != expectedType {
			t.Errorf("expected type %s, got %s", expectedType, cmd.Type)
		}
		if got := cmd.Fields[field]; got != expected {
			t.Errorf("expected field %s = %v, got %v", field, expected, got)
		}
	}

	t.Run("DigitalWriteCmd carries pin and value", func(t *testing.T) {
		cmd := command.DigitalWriteCmd(100, 13, 1)
		test(cmd, command.DigitalWrite, "pin", 13)
		test(cmd, command.DigitalWrite, "value", 1)
	})

	t.Run("DigitalReadReq carries the request id", func(t *testing.T) {
		cmd := command.DigitalReadReq(100, 7, "DIGITAL_READ_REQUEST_100_1")
		test(cmd, command.DigitalReadRequest, "pin", 7)
		test(cmd, command.DigitalReadRequest, "requestId", "DIGITAL_READ_REQUEST_100_1")
	})

	t.Run("ErrorCmd stamps the errorType as a string", func(t *testing.T) {
		cmd := command.ErrorCmd(100, "boom", command.RuntimeError)
		test(cmd, command.ErrorCommand, "message", "boom")
		test(cmd, command.ErrorCommand, "errorType", "RuntimeError")
	})

	t.Run("SwitchCaseCmd carries the match result", func(t *testing.T) {
		cmd := command.SwitchCaseCmd(100, "1", true)
		test(cmd, command.SwitchCase, "caseValue", "1")
		test(cmd, command.SwitchCase, "matched", true)
	})
}

func TestNewFillsEmptyFields(t *testing.T) {
	cmd := command.New(command.ProgramStart, 0, nil)
	if cmd.Fields == nil {
		t.Fatalf("expected New to allocate an empty Fields map, got nil")
	}
}
