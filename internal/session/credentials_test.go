package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials(t *testing.T) {
	t.Parallel()

	t.Run("zero value is unauthenticated", func(t *testing.T) {
		creds := NewCredentials()

		assert.False(t, creds.Authenticated())
		assert.Empty(t, creds.AccessToken())
		assert.Empty(t, creds.RefreshToken())
		assert.Zero(t, creds.UserID())
	})

	t.Run("set and read back", func(t *testing.T) {
		creds := NewCredentials()

		creds.Set("access-1", "refresh-1")
		creds.SetUser(42)

		access, refresh := creds.Pair()
		assert.Equal(t, "access-1", access)
		assert.Equal(t, "refresh-1", refresh)
		assert.EqualValues(t, 42, creds.UserID())
		assert.True(t, creds.Authenticated())
	})

	t.Run("clear wipes everything", func(t *testing.T) {
		creds := NewCredentials()
		creds.Set("access-1", "refresh-1")
		creds.SetUser(42)

		creds.Clear()

		access, refresh := creds.Pair()
		assert.Empty(t, access)
		assert.Empty(t, refresh)
		assert.Zero(t, creds.UserID())
		assert.False(t, creds.Authenticated())
	})

	t.Run("pair is never mixed across updates", func(t *testing.T) {
		creds := NewCredentials()
		creds.Set("a0", "r0")

		// Writers flip between two matched pairs, readers must only
		// ever observe a matched pair
		stop := make(chan struct{})
		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}

				if i%2 == 0 {
					creds.Set("a0", "r0")
				} else {
					creds.Set("a1", "r1")
				}
			}
		}()

		for i := 0; i < 10_000; i++ {
			access, refresh := creds.Pair()
			require.Equal(t, access[1:], refresh[1:], "observed mixed pair: access=%q refresh=%q", access, refresh)
		}

		close(stop)
		wg.Wait()
	})
}
