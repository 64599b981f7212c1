package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/golivegraph/pkg/config"
	"github.com/itohio/golivegraph/pkg/device"
	"github.com/itohio/golivegraph/pkg/engine"
	"github.com/itohio/golivegraph/pkg/export"
)

func TestBuildTransport(t *testing.T) {
	cfg := config.Default()
	cfg.Serial.Port = "/dev/ttyUSB1"
	cfg.Serial.BaudRate = 115200

	serial, ok := buildTransport(cfg, false).(*device.Serial)
	require.True(t, ok)
	assert.Equal(t, "/dev/ttyUSB1", serial.Port)
	assert.Equal(t, 115200, serial.BaudRate)

	_, ok = buildTransport(cfg, true).(*device.Mock)
	assert.True(t, ok)
}

func TestBuildUploader(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		check  func(*testing.T, export.Uploader)
	}{
		{
			name:   "disabled",
			modify: func(c *config.Config) { c.Export.Enabled = false },
			check: func(t *testing.T, u export.Uploader) {
				assert.IsType(t, export.Nop{}, u)
			},
		},
		{
			name:   "folder",
			modify: func(c *config.Config) { c.Export.Directory = "out" },
			check: func(t *testing.T, u export.Uploader) {
				f, ok := u.(*export.Folder)
				require.True(t, ok)
				assert.Equal(t, "out", f.Root)
			},
		},
		{
			name:   "compressed folder",
			modify: func(c *config.Config) { c.Export.Compress = true },
			check: func(t *testing.T, u export.Uploader) {
				c, ok := u.(*export.Compressed)
				require.True(t, ok)
				assert.IsType(t, &export.Folder{}, c.Next)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.modify(cfg)

			u, closeFn, err := buildUploader(cfg)
			require.NoError(t, err)
			tt.check(t, u)
			assert.NoError(t, closeFn())
		})
	}
}

func TestBuildUploader_InvalidFolderLink(t *testing.T) {
	cfg := config.Default()
	cfg.Export.FolderLink = "https://example.com/folder"

	_, _, err := buildUploader(cfg)
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	defer func() {
		rootFlags.port = ""
		rootFlags.baud = 0
	}()
	rootFlags.port = "COM7"
	rootFlags.baud = 57600

	cmd := &cobra.Command{}
	cmd.Flags().String("metrics-address", "", "")
	require.NoError(t, cmd.Flags().Set("metrics-address", ":9100"))
	rootFlags.metricsAddress = ":9100"
	defer func() { rootFlags.metricsAddress = "" }()

	cfg := config.Default()
	applyOverrides(cfg, cmd)
	assert.Equal(t, "COM7", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.BaudRate)
	assert.Equal(t, ":9100", cfg.Metrics.Address)
}

func TestServeMetrics(t *testing.T) {
	stop, err := serveMetrics("", nil)
	require.NoError(t, err)
	stop()

	_, err = serveMetrics("not-an-address", nil)
	assert.Error(t, err)
}

func TestPortOptions(t *testing.T) {
	ports := []device.Port{
		{Name: "/dev/ttyACM0", Description: "Arduino"},
		{Name: "/dev/ttyS0"},
	}

	options, names, selected := portOptions(ports, "/dev/ttyACM0")
	assert.Equal(t, []string{"/dev/ttyACM0 (Arduino)", "/dev/ttyS0"}, options)
	assert.Equal(t, "/dev/ttyACM0 (Arduino)", selected)
	assert.Equal(t, "/dev/ttyACM0", names[selected])

	options, _, selected = portOptions(ports, "COM3")
	assert.Len(t, options, 3)
	assert.Equal(t, "COM3", selected)
}

func TestCaptureLoop_StreamLost(t *testing.T) {
	eng := engine.New(config.Default(), engine.Options{Transport: device.NewMock(nil, 0)})
	defer eng.Close()

	err := captureLoop(t.Context(), eng, time.Second, 5*time.Millisecond)
	assert.ErrorContains(t, err, "stream lost")
}

func TestCaptureCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := "channels:\n  count: 3\nmock:\n  sample_rate: 5ms\nexport:\n  directory: " + dir + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))

	rootCmd.SetArgs([]string{"capture", "--mock", "--config", cfgPath, "--duration", "200ms"})
	require.NoError(t, rootCmd.Execute())

	files, err := filepath.Glob(filepath.Join(dir, "recordings", "session_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Signal-1,Signal-2,Signal-3")
}
