package teelogger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
)

func TestTee(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	logger := New(log.NewLogfmtLogger(&a), nil, log.NewLogfmtLogger(&b))

	require.NoError(t, logger.Log("msg", "hello"))
	require.Equal(t, "msg=hello\n", a.String())
	require.Equal(t, "msg=hello\n", b.String())
}

func TestTeeError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	failing := log.LoggerFunc(func(...interface{}) error { return errors.New("disk full") })
	logger := New(failing, log.NewLogfmtLogger(&buf))

	require.EqualError(t, logger.Log("msg", "hello"), "disk full")
	require.Equal(t, "msg=hello\n", buf.String(), "later loggers still run")
}
