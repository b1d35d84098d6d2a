package config

const (
	defaultDatabasePath = "./archive.db"
	defaultLogDir       = "~/.local/share/conflate/logs"
	defaultAuditDir     = "~/.local/share/conflate/audit"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultFuzzyWindow  = 20
)

// defaultStopWords are leading tokens that indicate an extraction artifact
// rather than a name. Entities whose normalized name starts with one of these
// are excluded from fuzzy matching.
var defaultStopWords = []string{
	"with", "when", "what", "where", "from", "that", "this",
	"have", "were", "their", "there", "about", "which",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DatabasePath: defaultDatabasePath,
			LogDir:       defaultLogDir,
			AuditDir:     defaultAuditDir,
		},
		Matching: Matching{
			FuzzyWindow: defaultFuzzyWindow,
			StopWords:   append([]string(nil), defaultStopWords...),
		},
		Aliases: map[string]string{},
		Backup: Backup{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
