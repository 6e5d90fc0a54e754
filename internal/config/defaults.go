package config

import "time"

const (
	defaultBind              = "0.0.0.0:5000"
	defaultManualUser        = "admin"
	defaultPlexURL           = "http://127.0.0.1:32400"
	defaultPlexTimeout       = 30 * time.Second
	defaultWebhookDelay      = 30 * time.Second
	defaultSettlePeriod      = 20 * time.Second
	defaultLookupInterval    = 20 * time.Second
	defaultRetryBackoff      = 10 * time.Second
	defaultQueuePollInterval = 2 * time.Second
	defaultTaskCooldown      = 5 * time.Second
	defaultQueueSize         = 1024
	defaultHistorySize       = 100
	defaultLogDir            = "~/.local/share/servarrsync/logs"
	defaultStateDir          = "~/.local/share/servarrsync"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:       defaultBind,
			ManualUser: defaultManualUser,
		},
		Plex: Plex{
			URL:     defaultPlexURL,
			Timeout: NewSeconds(defaultPlexTimeout),
		},
		Sync: Sync{
			WebhookDelay:      NewSeconds(defaultWebhookDelay),
			SettlePeriod:      NewSeconds(defaultSettlePeriod),
			LookupInterval:    NewSeconds(defaultLookupInterval),
			RetryBackoff:      NewSeconds(defaultRetryBackoff),
			QueuePollInterval: NewSeconds(defaultQueuePollInterval),
			TaskCooldown:      NewSeconds(defaultTaskCooldown),
			QueueSize:         defaultQueueSize,
			HistorySize:       defaultHistorySize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
	}
}
