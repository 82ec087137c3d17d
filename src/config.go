package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Recognised configuration constants for the looper, and a
 *		small YAML file loader for them.
 *
 * Description:	Mirrors the teacher's split between command-line flags
 *		(cmd/looperd uses pflag for those) and a declarative file
 *		loaded the way deviceid.go loads tocalls.yaml: a fixed
 *		search list of candidate paths, first hit wins, fields
 *		default sensibly when the file is missing entirely.
 *
 *------------------------------------------------------------------*/

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// SampleRate is fixed; spec.md §6 only allows the device's default
	// to be *checked* against it, never substituted.
	SampleRate = 44100

	DefaultInitialBPM         = 100
	MinBPM                    = 40
	MaxBPM                    = 300
	DefaultBPMStep            = 2
	DefaultLatencySeconds     = 0.05
	DefaultFadeTime           = 0.03
	DefaultTimingPrecision    = 1e-4
	DefaultPlayBlockingDelta  = 0.1
	DefaultBlockSize          = 1024
	DefaultBufferSizeBlocks   = 20
	DefaultBlinkOnTimeSeconds = 60.0 / 240.0 // quarter-note on-time
)

// Config holds every recognised option from spec.md §6, plus the two
// user-facing defaults spec.md §9's Open Question (iii) calls out as
// non-invariant (BPMStep, BlinkOnTime).
type Config struct {
	InitialBPM        int     `yaml:"initial_bpm"`
	LatencySeconds    float64 `yaml:"latency_seconds"`
	FadeTime          float64 `yaml:"fade_time"`
	TimingPrecision   float64 `yaml:"timing_precision"`
	PlayBlockingDelta float64 `yaml:"play_blocking_delta"`
	BlockSize         int     `yaml:"blocksize"`
	BufferSizeBlocks  int     `yaml:"buffersize"`
	RecordingRoot     string  `yaml:"recording_root"`
	BPMStep           int     `yaml:"bpm_step"`
	BlinkOnTimeSec    float64 `yaml:"blink_on_time"`
	ClickSamplePath   string  `yaml:"click_sample_path"`
}

// DefaultConfig returns the spec.md §6 defaults.
func DefaultConfig() Config {
	return Config{
		InitialBPM:        DefaultInitialBPM,
		LatencySeconds:    DefaultLatencySeconds,
		FadeTime:          DefaultFadeTime,
		TimingPrecision:   DefaultTimingPrecision,
		PlayBlockingDelta: DefaultPlayBlockingDelta,
		BlockSize:         DefaultBlockSize,
		BufferSizeBlocks:  DefaultBufferSizeBlocks,
		RecordingRoot:     os.TempDir(),
		BPMStep:           DefaultBPMStep,
		BlinkOnTimeSec:    DefaultBlinkOnTimeSeconds,
	}
}

// configSearchLocations mirrors deviceid.go's search_locations: current
// directory first, then a couple of conventional installed spots.
var configSearchLocations = []string{
	"loopstation.yaml",
	"./config/loopstation.yaml",
	"/etc/loopstation/loopstation.yaml",
}

// LoadConfig starts from DefaultConfig and overlays the first config file
// found in configSearchLocations (or explicitPath, if non-empty). A
// missing file is not an error: the defaults stand on their own.
func LoadConfig(explicitPath string) (Config, error) {
	var cfg = DefaultConfig()

	var candidates []string
	if explicitPath != "" {
		candidates = []string{explicitPath}
	} else {
		candidates = configSearchLocations
	}

	for _, path := range candidates {
		var data, readErr = os.ReadFile(path)
		if readErr != nil {
			continue
		}

		if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
			return cfg, unmarshalErr
		}

		Sub("config").Infof("loaded %s", path)

		return clampConfig(cfg), nil
	}

	if explicitPath != "" {
		Sub("config").Warnf("config file %s not found, using defaults", explicitPath)
	}

	return clampConfig(cfg), nil
}

func clampConfig(cfg Config) Config {
	cfg.InitialBPM = ClampBPM(cfg.InitialBPM)

	return cfg
}

// ClampBPM restricts bpm to [MinBPM, MaxBPM] per spec.md §6.
func ClampBPM(bpm int) int {
	if bpm < MinBPM {
		return MinBPM
	}

	if bpm > MaxBPM {
		return MaxBPM
	}

	return bpm
}
