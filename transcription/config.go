package transcription

import (
	"time"

	"github.com/kbukum/transcribe/validation"
)

// Saga defaults.
const (
	DefaultPollInterval      = 10 * time.Second
	DefaultVocabularyTimeout = 300 * time.Second
	DefaultJobTimeout        = 6 * time.Hour
	DefaultBatchConcurrency  = 1
)

// Config tunes the saga. Durations accept Go duration strings ("10s").
type Config struct {
	PollInterval      time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	VocabularyTimeout time.Duration `yaml:"vocabulary_timeout" mapstructure:"vocabulary_timeout"`
	JobTimeout        time.Duration `yaml:"job_timeout" mapstructure:"job_timeout"`
	JournalTTL        time.Duration `yaml:"journal_ttl" mapstructure:"journal_ttl"`
	// BatchConcurrency bounds how many requests TranscribeMany runs at once.
	BatchConcurrency int `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.VocabularyTimeout == 0 {
		c.VocabularyTimeout = DefaultVocabularyTimeout
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	if c.JournalTTL == 0 {
		c.JournalTTL = DefaultJournalTTL
	}
	if c.BatchConcurrency == 0 {
		c.BatchConcurrency = DefaultBatchConcurrency
	}
}

// Validate rejects negative or inconsistent settings.
func (c *Config) Validate() error {
	v := validation.New().
		Positive("poll_interval", c.PollInterval).
		Positive("vocabulary_timeout", c.VocabularyTimeout).
		Positive("job_timeout", c.JobTimeout).
		Positive("journal_ttl", c.JournalTTL).
		Min("batch_concurrency", c.BatchConcurrency, 1)
	if err := v.Validate(""); err != nil {
		return err
	}
	return nil
}
