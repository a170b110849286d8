package logger_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atarist-core/emucore/logger"
)

func TestCentralLogger(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Write(w)
	assert.Equal(t, "", w.String())

	log.Log(logger.Allow, "test", "this is a test")
	log.Write(w)
	assert.Equal(t, "test: this is a test\n", w.String())

	w.Reset()
	log.Log(logger.Allow, "test2", "this is another test")
	log.Write(w)
	assert.Equal(t, "test: this is a test\ntest2: this is another test\n", w.String())

	w.Reset()
	log.Tail(w, 100)
	assert.Equal(t, "test: this is a test\ntest2: this is another test\n", w.String())

	w.Reset()
	log.Tail(w, 2)
	assert.Equal(t, "test: this is a test\ntest2: this is another test\n", w.String())

	w.Reset()
	log.Tail(w, 1)
	assert.Equal(t, "test2: this is another test\n", w.String())

	w.Reset()
	log.Tail(w, 0)
	assert.Equal(t, "", w.String())
}

type prohibitLogging struct{ allow bool }

func (p prohibitLogging) AllowLogging() bool { return p.allow }

func TestPermissions(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	log.Log(prohibitLogging{allow: false}, "tag", "detail")
	log.Write(w)
	assert.Equal(t, "", w.String())

	log.Log(prohibitLogging{allow: true}, "tag", "detail")
	log.Write(w)
	assert.Equal(t, "tag: detail\n", w.String())
}

func TestErrorAndFormattedLogging(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	err := errors.New("test error")
	log.Log(logger.Allow, "tag", err)
	log.Write(w)
	assert.Equal(t, "tag: test error\n", w.String())

	log.Clear()
	w.Reset()
	log.Logf(logger.Allow, "tag", "wrapped: %v", err)
	log.Write(w)
	assert.Equal(t, "tag: wrapped: test error\n", w.String())
}

func TestRingOverwrite(t *testing.T) {
	log := logger.NewLogger(2)
	w := &strings.Builder{}

	log.Log(logger.Allow, "a", "1")
	log.Log(logger.Allow, "b", "2")
	log.Log(logger.Allow, "c", "3")
	log.Write(w)
	assert.Equal(t, "b: 2\nc: 3\n", w.String())
}
