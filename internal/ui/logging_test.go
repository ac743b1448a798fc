package ui

import (
	"github.com/pterm/pterm"
	"os"
)

func ExamplePrintfln() {
	pterm.SetDefaultOutput(os.Stdout)
	pterm.DisableStyling()

	msg := "This is a test %d"
	a := 5
	Printfln(msg, a)
	// Output:
	// This is a test 5
}

func ExampleDebug() {
	pterm.SetDefaultOutput(os.Stdout)
	pterm.DisableStyling()
	SetDebugEnabled(true)

	msg := "This is a test: %d"
	a := 5
	Debug(msg, a)
	// Output:
	// DEBUG: This is a test: 5
}

func ExampleInfo() {
	pterm.SetDefaultOutput(os.Stdout)
	pterm.DisableStyling()

	msg := "This is a test: %d"
	a := 5
	Info(msg, a)
	// Output:
	// INFO: This is a test: 5
}

func ExampleWarning() {
	pterm.SetDefaultOutput(os.Stdout)
	pterm.DisableStyling()

	msg := "This is a test: %d"
	a := 5
	Warning(msg, a)
	// Output:
	// WARNING: This is a test: 5
}

func ExampleError() {
	pterm.SetDefaultOutput(os.Stdout)
	pterm.DisableStyling()

	msg := "This is a test: %v"
	a := os.ErrClosed
	Error(msg, a)
	// Output:
	// ERROR: This is a test: file already closed
}

func ExampleOnceLogger() {
	pterm.SetDefaultOutput(os.Stdout)
	pterm.DisableStyling()

	l := NewOnceLogger()
	l.Error("status", "liquidctl status failed")
	l.Error("status", "liquidctl status failed")
	l.Resolve("status", "liquidctl status recovered")
	l.Error("status", "liquidctl status failed")
	// Output:
	// ERROR: liquidctl status failed
	// INFO: liquidctl status recovered
	// ERROR: liquidctl status failed
}
