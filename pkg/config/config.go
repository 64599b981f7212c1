package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MaxChannels is the number of channels a device frame can carry.
	MaxChannels = 13
)

// DefaultNames are the display names of the channels.
var DefaultNames = []string{
	"Signal-1", "Signal-2", "Signal-3", "Signal-4", "Signal-5", "Signal-6", "Signal-7",
	"Signal-8", "Signal-9", "Signal-10", "Signal-11", "Signal-12", "Signal-13",
}

// DefaultColors are the display colors of the channels as #rrggbb.
var DefaultColors = []string{
	"#67d8ef", "#d02662", "#61afef", "#e05c7e", "#98c379", "#e5c07b", "#c678dd",
	"#56b6c2", "#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4", "#feca57",
}

// Config represents the application configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Buffer    BufferConfig    `yaml:"buffer"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Scale     ScaleConfig     `yaml:"scale"`
	Split     SplitConfig     `yaml:"split"`
	Framing   FramingConfig   `yaml:"framing"`
	Render    RenderConfig    `yaml:"render"`
	Rate      RateConfig      `yaml:"rate"`
	Export    ExportConfig    `yaml:"export"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Mock      MockConfig      `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// ChannelsConfig describes the decoded channels.
type ChannelsConfig struct {
	Count  int      `yaml:"count"`
	Names  []string `yaml:"names"`
	Colors []string `yaml:"colors"`
	Hidden []int    `yaml:"hidden"` // Channel indices hidden at startup
}

// BufferConfig contains ring buffer parameters.
type BufferConfig struct {
	Capacity int `yaml:"capacity"` // Samples kept per channel
}

// SmoothingConfig contains the exponential moving average parameters.
type SmoothingConfig struct {
	Alpha float64 `yaml:"alpha"` // (0, 1], 1 = no smoothing
}

// ScaleConfig contains vertical range parameters.
type ScaleConfig struct {
	Auto       bool    `yaml:"auto"`
	Min        float64 `yaml:"min"` // Fixed range used when auto is off
	Max        float64 `yaml:"max"`
	Padding    float64 `yaml:"padding"`     // Fraction of the span added on both sides
	MinSpan    float64 `yaml:"min_span"`    // Span used when all values are equal
	ExpandOnly bool    `yaml:"expand_only"` // Autoscaled range never shrinks until cleared
}

// SplitConfig controls split-panel display.
type SplitConfig struct {
	Enabled    bool  `yaml:"enabled"`
	Panels     int   `yaml:"panels"`
	Assignment []int `yaml:"assignment"` // Panel index per channel index
}

// FramingConfig contains the wire format of the device stream.
type FramingConfig struct {
	FrameDelimiter string `yaml:"frame_delimiter"`
	FieldDelimiter string `yaml:"field_delimiter"`
	MaxCarry       int    `yaml:"max_carry"` // Max bytes buffered without a frame delimiter
}

// RenderConfig contains render loop parameters.
type RenderConfig struct {
	FPS       int    `yaml:"fps"`
	MaxPoints int    `yaml:"max_points"` // Points drawn per series
	GraphType string `yaml:"graph_type"` // line, dot or bar
}

// RateConfig contains sample rate estimation parameters.
type RateConfig struct {
	Window time.Duration `yaml:"window"`
}

// ExportConfig contains session export parameters.
type ExportConfig struct {
	Enabled    bool       `yaml:"enabled"`
	Folder     string     `yaml:"folder"`      // Folder name passed to the uploader
	Directory  string     `yaml:"directory"`   // Local root directory for folder exports
	FolderLink string     `yaml:"folder_link"` // Optional shared folder link reported as location
	FilePrefix string     `yaml:"file_prefix"`
	Compress   bool       `yaml:"compress"` // zstd-compress exported files
	MQTT       MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig contains the MQTT export target. Export goes to MQTT when Broker is set.
type MQTTConfig struct {
	Broker      string        `yaml:"broker"`
	TopicPrefix string        `yaml:"topic_prefix"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	QoS         byte          `yaml:"qos"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MetricsConfig contains the Prometheus endpoint configuration.
type MetricsConfig struct {
	Address string `yaml:"address"` // Empty disables the endpoint
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	SampleRate time.Duration `yaml:"sample_rate"` // Period between generated frames
	Amplitude  float64       `yaml:"amplitude"`
	NoiseLevel float64       `yaml:"noise_level"`
	ChunkSize  int           `yaml:"chunk_size"` // Max bytes per read, splits frames
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate:    9600,
			ReadTimeout: 100 * time.Millisecond,
		},
		Channels: ChannelsConfig{
			Count:  MaxChannels,
			Names:  append([]string(nil), DefaultNames...),
			Colors: append([]string(nil), DefaultColors...),
		},
		Buffer: BufferConfig{
			Capacity: 1000,
		},
		Smoothing: SmoothingConfig{
			Alpha: 0.8,
		},
		Scale: ScaleConfig{
			Auto:    true,
			Min:     -10,
			Max:     10,
			Padding: 0.05,
			MinSpan: 2,
		},
		Split: SplitConfig{
			Enabled: false,
			Panels:  4,
		},
		Framing: FramingConfig{
			FrameDelimiter: "\n",
			FieldDelimiter: ",",
			MaxCarry:       64 * 1024,
		},
		Render: RenderConfig{
			FPS:       60,
			MaxPoints: 1000,
			GraphType: "line",
		},
		Rate: RateConfig{
			Window: time.Second,
		},
		Export: ExportConfig{
			Enabled:    true,
			Folder:     "recordings",
			Directory:  ".",
			FilePrefix: "session",
			MQTT: MQTTConfig{
				TopicPrefix: "golivegraph",
				QoS:         1,
				Timeout:     10 * time.Second,
			},
		},
		Mock: MockConfig{
			SampleRate: 40 * time.Millisecond, // 25 samples per second
			Amplitude:  5.0,
			NoiseLevel: 0.2,
			ChunkSize:  7,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks value ranges that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Channels.Count < 1 || c.Channels.Count > MaxChannels {
		return fmt.Errorf("channel count %d out of range [1, %d]", c.Channels.Count, MaxChannels)
	}
	if c.Smoothing.Alpha <= 0 || c.Smoothing.Alpha > 1 {
		return fmt.Errorf("smoothing alpha %v out of range (0, 1]", c.Smoothing.Alpha)
	}
	if c.Buffer.Capacity < 1 {
		return fmt.Errorf("buffer capacity must be positive, got %d", c.Buffer.Capacity)
	}
	if !c.Scale.Auto && c.Scale.Min >= c.Scale.Max {
		return fmt.Errorf("fixed range min %v must be below max %v", c.Scale.Min, c.Scale.Max)
	}
	if c.Framing.FrameDelimiter == c.Framing.FieldDelimiter {
		return fmt.Errorf("frame and field delimiters must differ")
	}
	switch c.Render.GraphType {
	case "line", "dot", "bar":
	default:
		return fmt.Errorf("unknown graph type %q", c.Render.GraphType)
	}
	return nil
}

// ChannelName returns the configured name of a channel.
func (c *Config) ChannelName(index int) string {
	if index >= 0 && index < len(c.Channels.Names) && c.Channels.Names[index] != "" {
		return c.Channels.Names[index]
	}
	return fmt.Sprintf("Signal-%d", index+1)
}

// ChannelColor returns the configured color of a channel.
func (c *Config) ChannelColor(index int) string {
	if index >= 0 && index < len(c.Channels.Colors) && c.Channels.Colors[index] != "" {
		return c.Channels.Colors[index]
	}
	return DefaultColors[index%len(DefaultColors)]
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Channels.Count == 0 {
		c.Channels.Count = def.Channels.Count
	}
	if len(c.Channels.Names) == 0 {
		c.Channels.Names = def.Channels.Names
	}
	if len(c.Channels.Colors) == 0 {
		c.Channels.Colors = def.Channels.Colors
	}

	if c.Buffer.Capacity == 0 {
		c.Buffer.Capacity = def.Buffer.Capacity
	}
	if c.Smoothing.Alpha == 0 {
		c.Smoothing.Alpha = def.Smoothing.Alpha
	}

	if c.Scale.Min == 0 && c.Scale.Max == 0 {
		c.Scale.Min = def.Scale.Min
		c.Scale.Max = def.Scale.Max
	}
	if c.Scale.Padding == 0 {
		c.Scale.Padding = def.Scale.Padding
	}
	if c.Scale.MinSpan == 0 {
		c.Scale.MinSpan = def.Scale.MinSpan
	}

	if c.Split.Panels == 0 {
		c.Split.Panels = def.Split.Panels
	}

	if c.Framing.FrameDelimiter == "" {
		c.Framing.FrameDelimiter = def.Framing.FrameDelimiter
	}
	if c.Framing.FieldDelimiter == "" {
		c.Framing.FieldDelimiter = def.Framing.FieldDelimiter
	}
	if c.Framing.MaxCarry == 0 {
		c.Framing.MaxCarry = def.Framing.MaxCarry
	}

	if c.Render.FPS == 0 {
		c.Render.FPS = def.Render.FPS
	}
	if c.Render.MaxPoints == 0 {
		c.Render.MaxPoints = def.Render.MaxPoints
	}
	if c.Render.GraphType == "" {
		c.Render.GraphType = def.Render.GraphType
	}

	if c.Rate.Window == 0 {
		c.Rate.Window = def.Rate.Window
	}

	if c.Export.Folder == "" {
		c.Export.Folder = def.Export.Folder
	}
	if c.Export.Directory == "" {
		c.Export.Directory = def.Export.Directory
	}
	if c.Export.FilePrefix == "" {
		c.Export.FilePrefix = def.Export.FilePrefix
	}
	if c.Export.MQTT.TopicPrefix == "" {
		c.Export.MQTT.TopicPrefix = def.Export.MQTT.TopicPrefix
	}
	if c.Export.MQTT.Timeout == 0 {
		c.Export.MQTT.Timeout = def.Export.MQTT.Timeout
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.Amplitude == 0 {
		c.Mock.Amplitude = def.Mock.Amplitude
	}
	if c.Mock.ChunkSize == 0 {
		c.Mock.ChunkSize = def.Mock.ChunkSize
	}
}
