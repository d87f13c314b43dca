package config

const (
	DefaultHost          = "localhost"
	DefaultPort          = 8080
	DefaultDatabasePath  = "/usr/local/var/jobnorm/data/jobnorm.db"
	DefaultCosineCutoff  = 0.25
	DefaultEditIntensity = 0.1
	DefaultMaxDF         = 0.95
	DefaultMinDF         = 0.005
	DefaultThreshold     = 0.5
	DefaultDebounceMS    = 400
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = DefaultDatabasePath
	}
	if cfg.Lexicon.CosineCutoff == 0 {
		cfg.Lexicon.CosineCutoff = DefaultCosineCutoff
	}
	if cfg.Lexicon.EditIntensity == 0 {
		cfg.Lexicon.EditIntensity = DefaultEditIntensity
	}
	if cfg.Lexicon.Workers == 0 {
		cfg.Lexicon.Workers = 1
	}
	if cfg.Tokenizer.MinLength == 0 {
		cfg.Tokenizer.MinLength = 1
	}
	if cfg.Tokenizer.Workers == 0 {
		cfg.Tokenizer.Workers = 4
	}
	if cfg.Tokenizer.ChunkSize == 0 {
		cfg.Tokenizer.ChunkSize = 100
	}
	if cfg.Vectorizer.TitleMaxDF == 0 {
		cfg.Vectorizer.TitleMaxDF = DefaultMaxDF
	}
	if cfg.Vectorizer.TitleMinDF == 0 {
		cfg.Vectorizer.TitleMinDF = DefaultMinDF
	}
	if cfg.Vectorizer.DescMaxDF == 0 {
		cfg.Vectorizer.DescMaxDF = DefaultMaxDF
	}
	if cfg.Vectorizer.DescMinDF == 0 {
		cfg.Vectorizer.DescMinDF = DefaultMinDF
	}
	if cfg.Classifier.Threshold == 0 {
		cfg.Classifier.Threshold = DefaultThreshold
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = DefaultDebounceMS
	}
}
