package logging

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLoggerWhileLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			Info("tick")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			SetLogger(zap.NewNop())
		}
	}()
	wg.Wait()

	SetLogger(zap.New(core))
	Info("server protection updated", zap.Bool("enabled", true))
	Debug("dropped")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "server protection updated", entries[0].Message)
		assert.Equal(t, true, entries[0].ContextMap()["enabled"])
	}
	SetLogger(zap.NewNop())
}
