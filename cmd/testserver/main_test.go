package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServeDrainsOnCancel(t *testing.T) {
	srv := &http.Server{Addr: freeAddr(t), Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	var order []string
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, srv,
			func() { order = append(order, "auditor") },
			func() { order = append(order, "ingest") })
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.Equal(t, []string{"auditor", "ingest"}, order)
}

func TestServeListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	drained := false
	srv := &http.Server{Addr: l.Addr().String()}
	err = serve(context.Background(), srv, func() { drained = true })
	assert.Error(t, err)
	assert.False(t, drained)
}
