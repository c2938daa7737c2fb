package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dew-77/homework-bot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis"}, logx.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestFileStoreAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "bot.db")}, logx.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, st.AppendDelivery(ctx, DeliveryEntry{At: at, ChatID: 7, Kind: KindStatus, OK: true, Attempts: 1, Text: "hello"}))
	require.NoError(t, st.AppendDelivery(ctx, DeliveryEntry{ChatID: 7, Kind: KindFailure, Attempts: 3, Error: "boom", Text: "fail"}))
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	f, err := os.Open(filepath.Join(dir, "bot.journal.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var got []DeliveryEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e DeliveryEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e)
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 2)
	assert.True(t, got[0].At.Equal(at))
	assert.Equal(t, "hello", got[0].Text)
	assert.False(t, got[1].OK)
	assert.Equal(t, "boom", got[1].Error)
	assert.False(t, got[1].At.IsZero())
}

func TestFileStoreAfterClose(t *testing.T) {
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "j")}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	assert.ErrorIs(t, st.AppendDelivery(context.Background(), DeliveryEntry{}), ErrDisabled)
}

func TestFileStoreRequiresPath(t *testing.T) {
	_, err := Open(Config{Driver: "file"}, logx.Nop())
	require.Error(t, err)
}
