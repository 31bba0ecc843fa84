package config

const (
	defaultDataDir               = "~/.local/share/contentops"
	defaultLogDir                = "~/.local/share/contentops/logs"
	defaultDatabaseDriver        = "sqlite"
	defaultDatabaseFile          = "contentops.db"
	defaultAPIBind               = "127.0.0.1:7590"
	defaultPublicBaseURL         = "http://127.0.0.1:7590"
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
	defaultWorkerLanes           = 4
	defaultPollInterval          = 2
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 120
	defaultMaxAttempts           = 5
	defaultRetryBaseDelay        = 10
	defaultPendingSweepInterval  = 60
	defaultPendingGrace          = 120
	defaultNotifyTimeout         = 10
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/contentops/contentops"
	defaultLLMTitle              = "contentops script writer"
	defaultLLMTimeoutSeconds     = 90
	defaultBackendTimeoutSeconds = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Database: Database{
			Driver: defaultDatabaseDriver,
		},
		API: API{
			Bind:          defaultAPIBind,
			PublicBaseURL: defaultPublicBaseURL,
		},
		Workers: Workers{
			Lanes:                defaultWorkerLanes,
			PollInterval:         defaultPollInterval,
			HeartbeatInterval:    defaultHeartbeatInterval,
			HeartbeatTimeout:     defaultHeartbeatTimeout,
			MaxAttempts:          defaultMaxAttempts,
			RetryBaseDelay:       defaultRetryBaseDelay,
			PendingSweepInterval: defaultPendingSweepInterval,
			PendingGrace:         defaultPendingGrace,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout:      defaultNotifyTimeout,
			SubmissionCompleted: true,
			OutputFailed:        true,
			ScriptReady:         true,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS:      Backend{TimeoutSeconds: defaultBackendTimeoutSeconds},
		Avatar:   Backend{TimeoutSeconds: defaultBackendTimeoutSeconds},
		Captions: Backend{TimeoutSeconds: defaultBackendTimeoutSeconds},
	}
}
