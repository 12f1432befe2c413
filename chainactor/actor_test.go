package chainactor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type incrCmd struct{ by int }

func TestAskSerializesMutations(t *testing.T) {
	var total int
	a := New(func(cmd Command) (interface{}, error) {
		c := cmd.(incrCmd)
		total += c.by
		return total, nil
	}, 16)
	defer a.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, err := a.Ask(ctx, incrCmd{by: 1})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := a.Ask(ctx, incrCmd{by: 0})
	require.NoError(t, err)
	require.Equal(t, 100, v)
}

func TestTellDoesNotBlockOnHandler(t *testing.T) {
	done := make(chan struct{})
	a := New(func(cmd Command) (interface{}, error) {
		close(done)
		return nil, nil
	}, 1)
	defer a.Close()

	require.NoError(t, a.Tell(incrCmd{by: 1}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestAskAfterCloseReturnsErrClosed(t *testing.T) {
	a := New(func(cmd Command) (interface{}, error) { return nil, nil }, 1)
	a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := a.Ask(ctx, incrCmd{by: 1})
	require.ErrorIs(t, err, ErrClosed)
}
