package util

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestZerologLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zerolog.TraceLevel, ZerologLevel(TraceLevel))
	assert.Equal(t, zerolog.DebugLevel, ZerologLevel(DebugLevel))
	assert.Equal(t, zerolog.InfoLevel, ZerologLevel(InfoLevel))
	assert.Equal(t, zerolog.WarnLevel, ZerologLevel(WarnLevel))
	assert.Equal(t, zerolog.ErrorLevel, ZerologLevel(ErrorLevel))
	assert.Equal(t, zerolog.InfoLevel, ZerologLevel(42), "unknown levels default to info")
}

func TestZerologWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "listening\n", `"message":"listening"`},
		{"stdlog_prefix", "2024/01/02 03:04:05 server.go:10: broken pipe\n", `"message":"broken pipe"`},
		{"colon_without_date", "mount: ok", `"message":"mount: ok"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			w := zerologWriter{logger: zerolog.New(&buf), level: zerolog.WarnLevel}

			n, err := w.Write([]byte(tt.input))
			assert.NoError(t, err)
			assert.Equal(t, len(tt.input), n)
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), `"level":"warn"`)
		})
	}
}

func TestZerologWriter_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := zerologWriter{logger: zerolog.New(&buf), level: zerolog.InfoLevel}
	_, err := w.Write([]byte("  \n"))
	assert.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestPointer(t *testing.T) {
	t.Parallel()

	p := Pointer(3)
	assert.Equal(t, 3, *p)
}
