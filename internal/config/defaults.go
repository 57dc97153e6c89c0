package config

const (
	defaultConfigPath            = "~/.config/podgen/config.toml"
	defaultDataDir               = "~/.local/share/podgen"
	defaultLogDir                = "~/.local/share/podgen/logs"
	defaultDownloadDir           = "~/Podcasts"
	defaultTokenFile             = "~/.config/podgen/token"
	defaultBaseURL               = "http://localhost:8000"
	defaultRequestTimeoutSeconds = 180
	defaultUserAgent             = "podgen/dev"
	defaultVoice                 = "fable"
	defaultTone                  = "storytelling"
	defaultDurationMinutes       = 5
	defaultMaxDurationMinutes    = 10
	defaultPlayerCommand         = "ffplay -nodisp -autoexit -loglevel error"
	defaultFFprobeBinary         = "ffprobe"
	defaultProbeTimeoutSeconds   = 30
	defaultTimeUpdateIntervalMS  = 250
	defaultHistoryMaxEntries     = 100
	defaultHistoryRetentionHours = 24
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	maxDurationMinutesUpperBound = 30
	minTimeUpdateIntervalMS      = 50
	apiTokenEnv                  = "PODGEN_API_TOKEN"
	baseURLEnv                   = "PODGEN_BASE_URL"
	ntfyTopicEnv                 = "PODGEN_NTFY_TOPIC"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			DownloadDir: defaultDownloadDir,
			TokenFile:   defaultTokenFile,
		},
		Service: Service{
			BaseURL:               defaultBaseURL,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			UserAgent:             defaultUserAgent,
		},
		Generation: Generation{
			DefaultVoice:           defaultVoice,
			DefaultTone:            defaultTone,
			DefaultDurationMinutes: defaultDurationMinutes,
			MaxDurationMinutes:     defaultMaxDurationMinutes,
		},
		Playback: Playback{
			PlayerCommand:        defaultPlayerCommand,
			FFprobeBinary:        defaultFFprobeBinary,
			ProbeTimeoutSeconds:  defaultProbeTimeoutSeconds,
			TimeUpdateIntervalMS: defaultTimeUpdateIntervalMS,
			Autoplay:             true,
		},
		History: History{
			Enabled:        true,
			MaxEntries:     defaultHistoryMaxEntries,
			RetentionHours: defaultHistoryRetentionHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Ready:          true,
			Failures:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
