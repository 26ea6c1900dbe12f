package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/domain"
)

func TestCommandDispatch(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	cases := []struct {
		args []string
		want string
	}{
		{[]string{"sentinel"}, "live"},
		{[]string{"sentinel", "live"}, "live"},
		{[]string{"sentinel", "verify"}, "verify"},
		{[]string{"sentinel", "backtest", "signals.ndjson"}, "backtest"},
		{[]string{"sentinel", "--help"}, "live"},
	}
	for _, tc := range cases {
		os.Args = tc.args
		assert.Equal(t, tc.want, command())
	}
}

func TestExitCodeMapsErrorKinds(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("bad config")))
	assert.Equal(t, 2, exitCode(&gatewayError{errors.New("unreachable")}))
	assert.Equal(t, 3, exitCode(&schemaError{errors.New("migration failed")}))
	assert.Equal(t, 2, exitCode(fmt.Errorf("startup: %w", &gatewayError{errors.New("unreachable")})))
}

func TestRunBacktestReplaysSignalStream(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SENTINEL_DATA_DIR", dir)
	t.Setenv("BROKER_BASE_URL", "")
	t.Setenv("HEDGE_TOTAL_BUDGET", "1000000")

	path := filepath.Join(dir, "signals.ndjson")
	sig := domain.Signal{
		ReceivedAt: time.Now(),
		ChartTS:    time.Now(),
		Kind:       domain.BaseEntry,
		Instrument: domain.Nifty,
		Price:      domain.NewMoney(100),
	}
	writeNDJSON(t, path, sig)

	err := runBacktest(path)
	require.NoError(t, err)
}

func TestRunBacktestRejectsMissingFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SENTINEL_DATA_DIR", dir)

	err := runBacktest(filepath.Join(dir, "missing.ndjson"))
	assert.Error(t, err)
}

func writeNDJSON(t *testing.T, path string, sig domain.Signal) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	data, err := json.Marshal(sig)
	require.NoError(t, err)
	_, err = f.Write(append(data, '\n'))
	require.NoError(t, err)
}
