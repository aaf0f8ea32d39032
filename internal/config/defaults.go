package config

const (
	defaultConfigPath           = "~/.config/heatclip/config.toml"
	defaultDataDir              = "~/.local/share/heatclip"
	defaultAudioDir             = "~/.local/share/heatclip/audio"
	defaultLogDir               = "~/.local/share/heatclip/logs"
	defaultPeakFraction         = 0.15
	defaultSearchLengthSeconds  = 90
	defaultSettleSeconds        = 2
	defaultPageTimeoutSeconds   = 60
	defaultDownloadBinary       = "yt-dlp"
	defaultDownloadFormat       = "m4a"
	defaultDownloadTimeout      = 600
	defaultTranscriptionBackend = "assemblyai"
	defaultTranscriptionLang    = "tr"
	defaultWhisperXModel        = "large-v3"
	defaultLLMBaseURL           = "https://api.openai.com/v1"
	defaultLLMModel             = "gpt-4o"
	defaultLLMTemperature       = 0.4
	defaultLLMTimeoutSeconds    = 120
	defaultRetryAttempts        = 10
	defaultRetryMinSeconds      = 1
	defaultRetryMaxSeconds      = 75
	defaultWorkersVideos        = 4
	defaultWorkersTranscribe    = 8
	defaultWorkersClassify      = 8
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			AudioDir: defaultAudioDir,
			LogDir:   defaultLogDir,
		},
		Heatmap: Heatmap{
			PeakFraction:        defaultPeakFraction,
			SearchLengthSeconds: defaultSearchLengthSeconds,
			SettleSeconds:       defaultSettleSeconds,
			PageTimeoutSeconds:  defaultPageTimeoutSeconds,
			Headless:            true,
		},
		Download: Download{
			Binary:         defaultDownloadBinary,
			Format:         defaultDownloadFormat,
			TimeoutSeconds: defaultDownloadTimeout,
		},
		Transcription: Transcription{
			Backend:       defaultTranscriptionBackend,
			Language:      defaultTranscriptionLang,
			SpeakerLabels: true,
			WhisperXModel: defaultWhisperXModel,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Retry: Retry{
			Attempts:   defaultRetryAttempts,
			MinSeconds: defaultRetryMinSeconds,
			MaxSeconds: defaultRetryMaxSeconds,
		},
		Workers: Workers{
			Videos:     defaultWorkersVideos,
			Transcribe: defaultWorkersTranscribe,
			Classify:   defaultWorkersClassify,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
