package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger("test", &buf, WARN)

	logger.Info("не должно попасть в вывод")
	logger.Warn("warn %d", 1)
	logger.Error("error %s", "x")

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [test] warn 1")
	assert.Contains(t, out, "[ERROR] [test] error x")
}

func TestNilLogger_IsNoop(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.Info("ничего")
		logger.LogProtocolError("c1", errors.New("boom"), []byte{1, 2})
		assert.NoError(t, logger.Close())
	})
	assert.False(t, logger.Enabled(ERROR))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, INFO, ParseLevel("что-то"))
}

func TestHexDump_Truncates(t *testing.T) {
	assert.Equal(t, "No data", HexDump(nil))
	dump := HexDump(make([]byte, 1024))
	// 256 байт = 16 строк по 16 байт
	assert.Equal(t, 16, bytes.Count([]byte(dump), []byte("\n")))
}

func TestLoggerManager_ConsoleOnly(t *testing.T) {
	lm := NewLoggerManager(INFO, TRACE, false)
	a := lm.MustGetLogger("network")
	b := lm.MustGetLogger("network")
	assert.Same(t, a, b, "логгер компонента должен кешироваться")
	lm.MustGetLogger("game")
	assert.Equal(t, []string{"game", "network"}, lm.ListComponents())
	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}
