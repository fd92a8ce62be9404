package config

import "time"

const (
	defaultContentDir = "content"
	defaultOutputDir  = "docs"
	defaultStateDir   = "memory"
	defaultHistory    = ".mdpages/history.db"
	defaultSubject    = "mdpages.published"
	defaultDebounce   = 300 * time.Millisecond
)

// Default returns a configuration matching the classic content/docs/memory layout.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Base:    ".",
			Content: defaultContentDir,
			Output:  defaultOutputDir,
			State:   defaultStateDir,
		},
		Publish: PublishConfig{
			Enabled:   true,
			Backend:   BackendCLI,
			Remote:    "origin",
			GitBinary: "git",
			TokenEnv:  "GIT_TOKEN",
		},
		Markdown: MarkdownConfig{Extension: ".md"},
		History:  HistoryConfig{Enabled: true, Path: defaultHistory},
		Notify:   NotifyConfig{Subject: defaultSubject},
		Watch:    WatchConfig{Debounce: defaultDebounce},
	}
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	// Debounce is the quiet period after a file event before a run starts.
	Debounce time.Duration `yaml:"debounce"`
	// Interval triggers a run on a fixed schedule. Zero disables it.
	Interval time.Duration `yaml:"interval,omitempty"`
}
