package main

import (
	"context"
	"testing"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"github.com/RustedBytes/extract-frames/internal/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

type capturedRun struct {
	called   bool
	cfg      config.Config
	strategy entity.Strategy
}

func runCommand(t *testing.T, args ...string) (*capturedRun, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)

	got := &capturedRun{}
	cmd := newCommand(cfg, func(_ context.Context, cfg *config.Config, strategy entity.Strategy) error {
		got.called = true
		got.cfg = *cfg
		got.strategy = strategy
		return nil
	})
	cmd.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err = cmd.Run(context.Background(), append([]string{"extract-frames"}, args...))
	return got, err
}

func TestCommandDefaults(t *testing.T) {
	got, err := runCommand(t)
	require.NoError(t, err)
	require.True(t, got.called)
	assert.Equal(t, entity.StrategySequential, got.strategy)
	assert.Equal(t, "video.mp4", got.cfg.VideoFile)
	assert.Equal(t, 30, got.cfg.FrameSkip)
}

func TestCommandStrategySelection(t *testing.T) {
	for _, tc := range []struct {
		args []string
		want entity.Strategy
	}{
		{[]string{"--use-seek"}, entity.StrategySeek},
		{[]string{"--multicore"}, entity.StrategySegmented},
		{[]string{"--use-seek", "--multicore"}, entity.StrategySegmented},
	} {
		got, err := runCommand(t, tc.args...)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.strategy, tc.args)
	}
}

func TestCommandFlagsOverrideInvalidEnv(t *testing.T) {
	t.Setenv("FRAME_SKIP", "0")

	got, err := runCommand(t, "--frame-skip", "5", "-f", "clip.mp4", "--workers", "3")
	require.NoError(t, err)
	require.True(t, got.called)
	assert.Equal(t, 5, got.cfg.FrameSkip)
	assert.Equal(t, "clip.mp4", got.cfg.VideoFile)
	assert.Equal(t, 3, got.cfg.SegmentWorkers)
	assert.Equal(t, 3, got.cfg.WriteWorkers)
}

func TestCommandRejectsInvalidMergedConfig(t *testing.T) {
	t.Setenv("FRAME_SKIP", "0")

	got, err := runCommand(t)
	require.Error(t, err)
	assert.False(t, got.called)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
}
