package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLineConsole_Plain(t *testing.T) {
	c := &lineConsole{plain: bufio.NewReader(strings.NewReader("first\r\nsecond\nlast"))}

	for _, want := range []string{"first", "second", "last"} {
		got, err := c.ReadLine(context.Background(), time.Second)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := c.ReadLine(context.Background(), 0)
	require.ErrorIs(t, err, io.EOF)

	// WAIT consumes one line
	c = &lineConsole{plain: bufio.NewReader(strings.NewReader("\nx\n"))}
	require.NoError(t, c.Wait(context.Background()))
	got, err := c.ReadLine(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "x", got)
}

func TestLineConsole_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &lineConsole{plain: bufio.NewReader(strings.NewReader("unread\n"))}
	_, err := c.ReadLine(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFormatCPUTime(t *testing.T) {
	require.Equal(t, "00:00:00", formatCPUTime(0))
	require.Equal(t, "00:01:05", formatCPUTime(65))
	require.Equal(t, "26:03:07", formatCPUTime(26*3600+3*60+7))
}
