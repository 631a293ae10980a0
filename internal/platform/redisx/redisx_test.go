package redisx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/integration-engine/internal/platform/logger"
)

func TestConnectEmptyAddr(t *testing.T) {
	rdb, err := Connect(context.Background(), "  ")
	require.NoError(t, err)
	require.Nil(t, rdb)
}

func TestLocalLockerSerialisesPerKey(t *testing.T) {
	l := NewLocker(nil, time.Second, logger.Nop())
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "user-a")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
}

func TestLocalLockerTimesOutAndKeysAreIndependent(t *testing.T) {
	l := NewLocalLocker(20 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "a")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "a")
	require.True(t, errors.Is(err, ErrLockBusy), "got %v", err)

	other, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	again()

	_, err = l.Acquire(ctx, "")
	require.Error(t, err)
}

func TestLogPublisherEncodes(t *testing.T) {
	p := NewPublisher(nil, "", logger.Nop())
	require.NoError(t, p.Publish(context.Background(), map[string]any{"reason": "repeated_bypass"}))
	require.Error(t, p.Publish(context.Background(), make(chan int)))
}
