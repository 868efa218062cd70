package main

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestAwaitStop_ListenFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer occupied.Close()

	srv := &http.Server{Addr: occupied.Addr().String(), Handler: http.NotFoundHandler()}
	serveErr := startHTTP(srv, logger)

	done := make(chan error, 1)
	go func() { done <- awaitStop(logger, make(chan os.Signal), serveErr) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected the listen error, got nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("awaitStop kept waiting after the server failed to listen")
	}
}

func TestAwaitStop_Signal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGTERM

	if err := awaitStop(logger, sigCh, make(chan error)); err != nil {
		t.Errorf("awaitStop = %v, want nil on signal", err)
	}
}

func TestStartHTTP_ShutdownIsNotAnError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	serveErr := startHTTP(srv, logger)

	// Shutdown may land before or after ListenAndServe starts; either way
	// nothing is reported.
	time.Sleep(20 * time.Millisecond)
	if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-serveErr:
		t.Fatalf("unexpected serve error: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}
