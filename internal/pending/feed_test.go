package pending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed(t *testing.T) {
	t.Run("subscriber receives current value immediately", func(t *testing.T) {
		f := NewFeed()
		f.Publish(3)

		ch := f.Subscribe()
		defer f.Unsubscribe(ch)

		assert.Equal(t, 3, <-ch)
	})

	t.Run("publish reaches all subscribers", func(t *testing.T) {
		f := NewFeed()
		a := f.Subscribe()
		b := f.Subscribe()
		defer f.Unsubscribe(a)
		defer f.Unsubscribe(b)

		<-a
		<-b

		f.Publish(7)
		assert.Equal(t, 7, <-a)
		assert.Equal(t, 7, <-b)
	})

	t.Run("slow subscriber sees only the freshest count", func(t *testing.T) {
		f := NewFeed()
		ch := f.Subscribe()
		defer f.Unsubscribe(ch)
		<-ch

		f.Publish(1)
		f.Publish(2)
		f.Publish(9)

		assert.Equal(t, 9, <-ch)
		assert.Equal(t, 9, f.Last())
	})

	t.Run("unsubscribe closes the channel", func(t *testing.T) {
		f := NewFeed()
		ch := f.Subscribe()
		<-ch
		f.Unsubscribe(ch)

		_, open := <-ch
		require.False(t, open)

		// Unsubscribing twice must not panic.
		f.Unsubscribe(ch)
		f.Publish(4)
	})
}
