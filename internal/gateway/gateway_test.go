package gateway

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestTurnContextInterruptCancelsOnlyTheTurn(t *testing.T) {
	sig := make(chan os.Signal, 1)
	parent, stop := context.WithCancel(context.Background())
	defer stop()

	ctx, cancel := turnContext(parent, sig, time.Minute)
	defer cancel()

	sig <- syscall.SIGINT
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("turn context not cancelled after interrupt")
	}
	if parent.Err() != nil {
		t.Fatalf("parent context must survive a turn interrupt: %v", parent.Err())
	}
}

func TestTurnContextFollowsParent(t *testing.T) {
	sig := make(chan os.Signal, 1)
	parent, stop := context.WithCancel(context.Background())

	ctx, cancel := turnContext(parent, sig, time.Minute)
	defer cancel()

	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("turn context must follow parent cancellation")
	}
}
