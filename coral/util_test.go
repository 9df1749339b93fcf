package coral

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestReconnect(t *testing.T) {
	reconnect := NewReconnect(50 * time.Millisecond)
	startTime := time.Now()
	<-reconnect.After()
	assert.Equal(t, 50*time.Millisecond <= time.Since(startTime), true)

	// already elapsed fires immediately
	reconnect = NewReconnect(0)
	select {
	case <-reconnect.After():
	case <-time.After(1 * time.Second):
		t.Fatal("expected immediate fire")
	}
}
