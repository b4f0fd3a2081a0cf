package checkout

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startCallback(t *testing.T) *CallbackServer {
	t.Helper()
	srv := NewCallbackServer("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestCallbackServer_Success(t *testing.T) {
	srv := startCallback(t)

	resp, err := http.Get(srv.BaseURL() + "/payment/success?session_id=cs_test_123")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Payment received")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ret, err := srv.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, ret.Cancelled)

	id, err := SessionIDFromURL(ret.URL)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", id)
}

func TestCallbackServer_CancelAndFirstWins(t *testing.T) {
	srv := startCallback(t)

	resp, err := http.Get(srv.BaseURL() + "/payment/cancel")
	require.NoError(t, err)
	resp.Body.Close()
	resp, err = http.Get(srv.BaseURL() + "/payment/success?session_id=late")
	require.NoError(t, err)
	resp.Body.Close()

	ret, err := srv.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, ret.Cancelled)
}

func TestCallbackServer_WaitHonoursContext(t *testing.T) {
	srv := startCallback(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := srv.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallbackServer_UnknownPath(t *testing.T) {
	srv := startCallback(t)
	resp, err := http.Get(srv.BaseURL() + "/elsewhere")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallbackServer_StartFailsOnBusyPort(t *testing.T) {
	first := startCallback(t)
	addr := first.BaseURL()[len("http://"):]

	second := NewCallbackServer(addr, zerolog.Nop())
	err := second.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
