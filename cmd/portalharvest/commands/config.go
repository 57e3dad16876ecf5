package commands

import (
	"fmt"
	"portalharvest/internal/components/configutil"
	"portalharvest/internal/fetch"
	"portalharvest/internal/store"
	"unicode/utf8"
)

type BrowserConfig struct {
	// Bin is the browser executable, found by the launcher when empty.
	Bin string `json:"bin"`
	// ControlUrl attaches to a running browser's devtools endpoint.
	ControlUrl string `json:"control_url"`
	// Headful shows the browser window.
	Headful    bool `json:"headful"`
	PageWaitMs int  `json:"page_wait_ms"`
}

type Config struct {
	// Output is the dataset every run appends to.
	Output    string `json:"output"`
	Delimiter string `json:"delimiter"`
	BOM       bool   `json:"bom"`

	// ArchiveCap bounds archive runs, 0 means unbounded.
	ArchiveCap int `json:"archive_cap"`
	PageCap    int `json:"page_cap"`
	ChunkSize  int `json:"chunk_size"`
	// DelayMs is the pause between units.
	DelayMs        int    `json:"delay_ms"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	BaseUrl        string `json:"base_url"`
	DetailTemplate string `json:"detail_template"`

	// From and To bound archive runs, as YYYYMM.
	From string `json:"from"`
	To   string `json:"to"`

	Browser BrowserConfig `json:"browser"`

	// Checkpoint is the store for completed units and the run log, sitting
	// next to the output when unset.
	Checkpoint  store.Config `json:"checkpoint"`
	PersistKeys bool         `json:"persist_keys"`

	// Schedule is the cron spec used by the schedule command.
	Schedule string `json:"schedule"`
}

var defaultConfig = Config{
	Output:         "dados_pe_de_meia.csv",
	Delimiter:      ";",
	ArchiveCap:     0,
	PageCap:        20000,
	ChunkSize:      fetch.DefaultChunkSize,
	DelayMs:        2000,
	TimeoutSeconds: int(fetch.DefaultTimeout.Seconds()),
	BaseUrl:        fetch.DefaultBaseUrl,
	Browser: BrowserConfig{
		PageWaitMs: int(fetch.DefaultPageWait.Milliseconds()),
	},
	Schedule: "0 6 * * *",
}

func loadConfig() (Config, error) {
	cfg, err := configutil.ReadConfigWithDefaults(configPath, defaultConfig)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", configPath, err)
	}
	if cfg.Checkpoint.File == "" && cfg.Checkpoint.Url == "" {
		cfg.Checkpoint.File = cfg.Output + ".state.db"
	}
	return cfg, nil
}

func (c Config) delimiter() (rune, error) {
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r, nil
}
