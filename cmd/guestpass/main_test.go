// File: cmd/guestpass/main_test.go
package main

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("writes panic log", func(t *testing.T) {
		var (
			written  string
			exitCode = -1
		)
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = string(data)
			return nil
		}
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("chromium vanished")
		}()

		assert.Contains(t, written, "panic: chromium vanished")
		assert.Contains(t, written, "goroutine", "the stack trace is included")
		assert.Equal(t, 2, exitCode)
	})

	t.Run("log write failure", func(t *testing.T) {
		exitCode := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, 2, exitCode)
	})

	t.Run("no panic", func(t *testing.T) {
		osExit = func(int) { t.Error("must not exit") }
		func() {
			defer handlePanic()
		}()
	})
}
