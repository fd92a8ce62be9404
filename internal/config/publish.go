package config

import "time"

// PublishBackend selects how output is committed and pushed.
type PublishBackend string

const (
	// BackendCLI shells out to the git command line tool.
	BackendCLI PublishBackend = "cli"
	// BackendGoGit uses the go-git library in process.
	BackendGoGit PublishBackend = "gogit"
)

// PublishConfig controls the commit-and-push step.
type PublishConfig struct {
	Enabled bool           `yaml:"enabled"`
	Backend PublishBackend `yaml:"backend"`
	Remote  string         `yaml:"remote"`
	// Branch is pushed explicitly when set; otherwise the current branch's upstream is used.
	Branch string `yaml:"branch,omitempty"`
	// Timeout bounds the whole add/commit/push sequence. Zero means no timeout.
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	GitBinary   string        `yaml:"git_binary,omitempty"`
	AuthorName  string        `yaml:"author_name,omitempty"`
	AuthorEmail string        `yaml:"author_email,omitempty"`
	// TokenEnv names the environment variable holding an HTTP token for the gogit backend.
	TokenEnv string `yaml:"token_env,omitempty"`
	// PushRetries is how often a push failing with a network error is retried.
	PushRetries  int           `yaml:"push_retries,omitempty"`
	RetryDelay   time.Duration `yaml:"retry_delay,omitempty"`
	RetryBackoff string        `yaml:"retry_backoff,omitempty"` // fixed|linear|exponential
}
