package cli

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/wingo/internal/config"
	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/oracle"
	"github.com/rcliao/wingo/internal/store"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		dbPath, backend, logLevel, logFormat = "", "", "", ""
	})
}

func TestApplyFlagsBackendMovesDefaultPath(t *testing.T) {
	resetFlags(t)
	cfg := &config.Config{Store: config.StoreConfig{
		Backend: store.BackendSQLite,
		Path:    config.DefaultStorePath(store.BackendSQLite),
	}}

	backend = store.BackendFile
	applyFlags(cfg)
	assert.Equal(t, store.BackendFile, cfg.Store.Backend)
	assert.Equal(t, config.DefaultStorePath(store.BackendFile), cfg.Store.Path)
}

func TestApplyFlagsKeepsExplicitPath(t *testing.T) {
	resetFlags(t)
	cfg := &config.Config{Store: config.StoreConfig{Backend: store.BackendSQLite, Path: "/data/wingo.db"}}

	backend = store.BackendFile
	dbPath = "/data/docs"
	logLevel = "debug"
	logFormat = "json"
	applyFlags(cfg)
	assert.Equal(t, "/data/docs", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestImportOverridesIntoFileStore(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir(), store.FormatJSON, nil)
	require.NoError(t, err)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	n, err := importOverrides(cmd, s, []model.Override{
		{Serial: "10775", Outcome: model.Outcome{Color: model.Green, Size: model.Big}},
		{Serial: "10776", Outcome: model.Outcome{Color: model.Red, Size: model.Small}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	o, err := s.GetOverride(context.Background(), "10776")
	require.NoError(t, err)
	assert.Equal(t, model.Red, o.Color)
}

func TestImportOverridesStopsOnInvalid(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir(), store.FormatJSON, nil)
	require.NoError(t, err)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	n, err := importOverrides(cmd, s, []model.Override{
		{Serial: "10775", Outcome: model.Outcome{Color: model.Green, Size: model.Big}},
		{Serial: "10776", Outcome: model.Outcome{Color: "BLUE", Size: model.Small}},
	})
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestServeStopsOnCancel(t *testing.T) {
	s, err := store.NewFileStore(t.TempDir(), store.FormatJSON, nil)
	require.NoError(t, err)

	// Grab a free port, then release it for the server.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, addr, s, oracle.New(s, nil, nil), nil) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeReportsListenError(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewSQLiteStore(filepath.Join(dir, "wingo.db"))
	require.NoError(t, err)
	defer s.Close()

	err = serve(context.Background(), "not-an-address", s, oracle.New(s, nil, nil), nil)
	assert.Error(t, err)
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, &store.Stats{
		Backend:          store.BackendFile,
		DBPath:           "/srv/wingo",
		DBSizeBytes:      42,
		Serials:          2,
		OverrideVersions: 2,
		Chats:            1,
		ColorCounts:      []store.ColorCount{{Color: "GREEN", Count: 2}},
	})
	assert.Equal(t, "backend:   file\n"+
		"path:      /srv/wingo (42 bytes)\n"+
		"serials:   2 (2 versions)\n"+
		"chats:     1\n"+
		"  GREEN   2\n", buf.String())
}

func TestBackendsReportStats(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir(), store.FormatJSON, nil)
	require.NoError(t, err)
	sq, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "wingo.db"))
	require.NoError(t, err)
	defer sq.Close()

	for _, s := range []store.Store{fs, sq} {
		_, ok := s.(statser)
		assert.True(t, ok, "%T", s)
	}
}
