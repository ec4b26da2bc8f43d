package pianola

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type (
	// Config is the user-editable configuration, stored as YAML under
	// ~/.pianola/config.yml. Loading a missing file yields the defaults.
	Config struct {
		Audio AudioConfig `yaml:"audio"`
		MIDI  MIDIConfig  `yaml:"midi"`
		Keys  KeyConfig   `yaml:"keys"`
	}

	AudioConfig struct {
		SampleRate int     `yaml:"sample_rate"`
		BufferSize int     `yaml:"buffer_size"`
		Volume     float32 `yaml:"volume"`
	}

	MIDIConfig struct {
		InputDevice string `yaml:"input_device"`
	}

	// KeyConfig maps computer-keyboard rows onto piano keys: WhiteRow in
	// order onto the white keys of the current octave and up, BlackRow onto
	// the black keys.
	KeyConfig struct {
		WhiteRow   string `yaml:"white_row"`
		BlackRow   string `yaml:"black_row"`
		OctaveUp   string `yaml:"octave_up"`
		OctaveDown string `yaml:"octave_down"`
		Sustain    string `yaml:"sustain"`
	}
)

func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: SampleRate,
			BufferSize: 256,
			Volume:     0.7,
		},
		MIDI: MIDIConfig{InputDevice: "auto"},
		Keys: KeyConfig{
			WhiteRow:   "asdfghjkl;zxcvbnm,./",
			BlackRow:   "1234567890-=",
			OctaveUp:   "+",
			OctaveDown: "_",
			Sustain:    " ",
		},
	}
}

// LoadConfig reads the configuration from path, or from the default location
// when path is empty. A missing file is not an error; defaults are returned.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return cfg, err
		}
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path (default location when empty),
// creating parent directories as needed.
func (c Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".pianola", "config.yml"), nil
}

// RecordingsDir returns the directory for saved capture logs, creating it if
// necessary.
func RecordingsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	dir := filepath.Join(home, ".pianola", "recordings")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create recordings dir: %w", err)
	}
	return dir, nil
}
