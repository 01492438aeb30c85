package cli

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msauth/pkg/logging"
)

func TestServiceNotifier_WithoutSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	n := NewServiceNotifier(logging.Discard())
	n.Ready()
	n.Status("refreshing")
	n.Stopping()
}

func TestServiceNotifier_SendsState(t *testing.T) {
	dir, err := os.MkdirTemp("", "sdn")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	socketPath := filepath.Join(dir, "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: socketPath, Net: "unixgram"})
	require.NoError(t, err)
	defer conn.Close()

	t.Setenv("NOTIFY_SOCKET", socketPath)

	n := NewServiceNotifier(logging.Discard())
	n.Ready()
	n.Status("token expires in 55m0s")

	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	size, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "READY=1", string(buf[:size]))

	size, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "STATUS=token expires in 55m0s", string(buf[:size]))
}
