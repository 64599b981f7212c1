package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 13, cfg.Channels.Count)
	assert.Len(t, cfg.Channels.Names, 13)
	assert.Len(t, cfg.Channels.Colors, 13)
	assert.Equal(t, 1000, cfg.Buffer.Capacity)
	assert.Equal(t, 0.8, cfg.Smoothing.Alpha)
	assert.True(t, cfg.Scale.Auto)
	assert.Equal(t, 0.05, cfg.Scale.Padding)
	assert.Equal(t, "\n", cfg.Framing.FrameDelimiter)
	assert.Equal(t, ",", cfg.Framing.FieldDelimiter)
	assert.Equal(t, time.Second, cfg.Rate.Window)
	assert.Equal(t, "line", cfg.Render.GraphType)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
  baud_rate: 115200

channels:
  count: 4
  names: [ax, ay, az, temp]

buffer:
  capacity: 250

smoothing:
  alpha: 0.5

scale:
  auto: false
  min: -1
  max: 1

split:
  enabled: true
  panels: 2
  assignment: [0, 0, 1, 1]

framing:
  field_delimiter: ";"

rate:
  window: 2s
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 4, cfg.Channels.Count)
	assert.Equal(t, "temp", cfg.ChannelName(3))
	assert.Equal(t, 250, cfg.Buffer.Capacity)
	assert.Equal(t, 0.5, cfg.Smoothing.Alpha)
	assert.False(t, cfg.Scale.Auto)
	assert.Equal(t, -1.0, cfg.Scale.Min)
	assert.Equal(t, 1.0, cfg.Scale.Max)
	assert.True(t, cfg.Split.Enabled)
	assert.Equal(t, []int{0, 0, 1, 1}, cfg.Split.Assignment)
	assert.Equal(t, ";", cfg.Framing.FieldDelimiter)
	assert.Equal(t, "\n", cfg.Framing.FrameDelimiter) // default
	assert.Equal(t, 2*time.Second, cfg.Rate.Window)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"alpha above one", "smoothing:\n  alpha: 1.5\n"},
		{"too many channels", "channels:\n  count: 14\n"},
		{"inverted fixed range", "scale:\n  auto: false\n  min: 5\n  max: 1\n"},
		{"same delimiters", "framing:\n  frame_delimiter: \",\"\n"},
		{"unknown graph type", "render:\n  graph_type: pie\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := t.TempDir() + "/config.yaml"
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			cfg, err := Load(path)
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 1000, cfg.Buffer.Capacity)
	assert.Equal(t, 13, cfg.Channels.Count)
	assert.Equal(t, 60, cfg.Render.FPS)
	assert.Equal(t, "recordings", cfg.Export.Folder)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Buffer.Capacity = 500

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 500, loaded.Buffer.Capacity)
	assert.Equal(t, "\n", loaded.Framing.FrameDelimiter)
}

func TestConfig_ChannelNameAndColor(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "Signal-1", cfg.ChannelName(0))
	assert.Equal(t, "Signal-13", cfg.ChannelName(12))
	assert.Equal(t, "#67d8ef", cfg.ChannelColor(0))
	assert.Equal(t, "#feca57", cfg.ChannelColor(12))

	cfg.Channels.Names = []string{"x"}
	cfg.Channels.Colors = nil
	assert.Equal(t, "x", cfg.ChannelName(0))
	assert.Equal(t, "Signal-2", cfg.ChannelName(1))
	assert.Equal(t, "#d02662", cfg.ChannelColor(1))
}
