package server

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/client"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/transport"
)

func writeSource(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "source.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// startServer serves on l until the test ends.
func startServer(t *testing.T, config transfer.Config, l transport.Listener) *Server {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	s := NewServer(config, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, l)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
		l.Close()
	})
	return s
}

func roundTrip(t *testing.T, config transfer.Config, size int) {
	t.Helper()
	config.UploadDirectory = t.TempDir()
	config.OutputDirectory = t.TempDir()

	l, err := transport.Listen(config.Transport, "127.0.0.1:0")
	require.NoError(t, err)
	startServer(t, config, l)
	config.Address = l.Addr().String()

	src := writeSource(t, size)
	logger, _ := logtest.NewNullLogger()
	c := client.NewClient(config, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	res, err := c.Upload(ctx, src, nil)
	require.NoError(t, err)
	assert.True(t, res.Match)
	assert.Equal(t, int64(size), res.Bytes)
	assert.Equal(t, filepath.Join(config.OutputDirectory, "received_source.bin"), res.Output)
	assert.Empty(t, res.Missing)
	assert.Zero(t, res.Malformed)

	uploaded, err := os.ReadFile(filepath.Join(config.UploadDirectory, "source.bin"))
	require.NoError(t, err)
	original, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, original, uploaded)
}

func TestRoundTripEncodings(t *testing.T) {
	for _, encoding := range []string{"text", "gob", "bson", "proto"} {
		t.Run(encoding, func(t *testing.T) {
			config := transfer.NewConfig()
			config.Encoding = encoding
			roundTrip(t, config, 2500)
		})
	}
}

func TestRoundTripSizes(t *testing.T) {
	for _, size := range []int{0, 1, 1024, 1025, 64 * 1024} {
		config := transfer.NewConfig()
		config.Digest = "blake3"
		roundTrip(t, config, size)
	}
}

func TestRoundTripSequentialClients(t *testing.T) {
	config := transfer.NewConfig()
	config.UploadDirectory = t.TempDir()
	config.OutputDirectory = t.TempDir()
	l, err := transport.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	startServer(t, config, l)
	config.Address = l.Addr().String()

	logger, _ := logtest.NewNullLogger()
	c := client.NewClient(config, logger)
	for i := 0; i < 3; i++ {
		res, err := c.Upload(context.Background(), writeSource(t, 3000), nil)
		require.NoError(t, err)
		assert.True(t, res.Match)
	}
}

func TestRoundTripSourceInUploadDirectory(t *testing.T) {
	dir := t.TempDir()
	config := transfer.NewConfig()
	config.UploadDirectory = dir
	config.OutputDirectory = dir
	l, err := transport.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	startServer(t, config, l)
	config.Address = l.Addr().String()

	data := make([]byte, 4<<20)
	_, err = rand.Read(data)
	require.NoError(t, err)
	src := filepath.Join(dir, "source.bin")
	require.NoError(t, os.WriteFile(src, data, 0644))

	logger, _ := logtest.NewNullLogger()
	res, err := client.NewClient(config, logger).Upload(context.Background(), src, nil)
	require.NoError(t, err)
	assert.True(t, res.Match)

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, data, after)
	returned, err := os.ReadFile(filepath.Join(dir, "received_source.bin"))
	require.NoError(t, err)
	assert.Equal(t, data, returned)
}

func TestRoundTripProgress(t *testing.T) {
	config := transfer.NewConfig()
	config.UploadDirectory = t.TempDir()
	config.OutputDirectory = t.TempDir()
	l, err := transport.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	startServer(t, config, l)
	config.Address = l.Addr().String()

	logger, _ := logtest.NewNullLogger()
	progress := make(chan transfer.Progress, 64)
	_, err = client.NewClient(config, logger).Upload(context.Background(), writeSource(t, 4096), progress)
	require.NoError(t, err)
	close(progress)

	var last transfer.Progress
	for p := range progress {
		last = p
	}
	assert.Equal(t, transfer.DONE, last.Type)
	assert.Equal(t, float64(100), last.Percentage)
}

func TestRoundTripQUIC(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping QUIC round trip in short mode")
	}
	config := transfer.NewConfig()
	config.Transport = "quic"
	roundTrip(t, config, 10000)
}

func TestServeStopsOnCancel(t *testing.T) {
	l, err := transport.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	logger, _ := logtest.NewNullLogger()
	s := NewServer(transfer.NewConfig(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, l)
	}()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
