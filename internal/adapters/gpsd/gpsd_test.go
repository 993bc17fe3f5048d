package gpsd

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockout.agent/internal/core/model"
	"clockout.agent/internal/ports/location"
)

// fakeGpsd speaks just enough of the gpsd JSON protocol for the client:
// a VERSION banner, then TPV lines once the WATCH command arrives.
type fakeGpsd struct {
	listener net.Listener
	lines    []string
	dials    atomic.Int64
}

func startFakeGpsd(t *testing.T, lines ...string) *fakeGpsd {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeGpsd{listener: listener, lines: lines}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			f.dials.Add(1)
			go f.serve(conn)
		}
	}()

	return f
}

func (f *fakeGpsd) serve(conn net.Conn) {
	defer conn.Close()

	fmt.Fprintln(conn, `{"class":"VERSION","release":"3.25","proto_major":3,"proto_minor":14}`)

	command, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil || !strings.HasPrefix(command, "?WATCH") {
		return
	}

	for _, line := range f.lines {
		fmt.Fprintln(conn, line)
	}

	// Hold the connection open like the real daemon does between reports.
	time.Sleep(5 * time.Second)
}

func (f *fakeGpsd) addr() string {
	return f.listener.Addr().String()
}

func TestSource_CurrentFix(t *testing.T) {
	t.Run("skips non-fix reports and returns the first real fix", func(t *testing.T) {
		fake := startFakeGpsd(t,
			`{"class":"SKY","satellites":[]}`,
			`{"class":"TPV","mode":1}`,
			`{"class":"TPV","mode":3,"time":"2026-03-02T08:00:00Z","lat":6.5244,"lon":3.3792,"eph":7.5}`,
		)

		src := New(fake.addr(), 30*time.Second)

		fix, err := src.CurrentFix(context.Background(), location.ForceFresh)
		require.NoError(t, err)

		assert.Equal(t, 6.5244, fix.Lat)
		assert.Equal(t, 3.3792, fix.Lon)
		assert.Equal(t, 7.5, fix.AccuracyM)
		assert.Equal(t, 2026, fix.Time.Year())
	})

	t.Run("falls back to epx and epy when eph is missing", func(t *testing.T) {
		fake := startFakeGpsd(t,
			`{"class":"TPV","mode":2,"time":"2026-03-02T08:00:00Z","lat":6.5,"lon":3.3,"epx":4.0,"epy":9.0}`,
		)

		src := New(fake.addr(), 30*time.Second)

		fix, err := src.CurrentFix(context.Background(), location.ForceFresh)
		require.NoError(t, err)
		assert.Equal(t, 9.0, fix.AccuracyM)
	})

	t.Run("serves a recent fix from cache without redialing", func(t *testing.T) {
		fake := startFakeGpsd(t,
			`{"class":"TPV","mode":3,"time":"`+time.Now().UTC().Format(time.RFC3339)+`","lat":6.5244,"lon":3.3792,"eph":5.0}`,
		)

		src := New(fake.addr(), 30*time.Second)

		_, err := src.CurrentFix(context.Background(), location.ForceFresh)
		require.NoError(t, err)
		require.EqualValues(t, 1, fake.dials.Load())

		fix, err := src.CurrentFix(context.Background(), location.CachedOK)
		require.NoError(t, err)
		assert.Equal(t, 6.5244, fix.Lat)
		assert.EqualValues(t, 1, fake.dials.Load())
	})

	t.Run("forced fresh always redials", func(t *testing.T) {
		line := `{"class":"TPV","mode":3,"time":"` + time.Now().UTC().Format(time.RFC3339) + `","lat":6.5244,"lon":3.3792,"eph":5.0}`
		fake := startFakeGpsd(t, line)

		src := New(fake.addr(), 30*time.Second)

		_, err := src.CurrentFix(context.Background(), location.ForceFresh)
		require.NoError(t, err)

		_, err = src.CurrentFix(context.Background(), location.ForceFresh)
		require.NoError(t, err)
		assert.EqualValues(t, 2, fake.dials.Load())
	})

	t.Run("reports unavailable when the daemon is down", func(t *testing.T) {
		src := New("127.0.0.1:1", 30*time.Second)

		_, err := src.CurrentFix(context.Background(), location.ForceFresh)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrLocationUnavailable)
	})

	t.Run("honors context cancellation while waiting for a fix", func(t *testing.T) {
		// The daemon answers but never produces a usable TPV.
		fake := startFakeGpsd(t, `{"class":"TPV","mode":0}`)

		src := New(fake.addr(), 30*time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		_, err := src.CurrentFix(ctx, location.ForceFresh)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrLocationUnavailable)
	})
}
