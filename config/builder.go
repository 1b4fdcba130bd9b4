package config

import (
	"github.com/countboard/countboard"
)

// BuildOptions converts parsed configuration into SDK options for
// [countboard.New].
//
// The config must have passed [Parse] validation; BuildOptions only fails
// if the SDK rejects a value the config layer does not check.
func BuildOptions(cfg *Config) ([]countboard.Option, error) {
	var srcOpts []countboard.SourceOption
	if cfg.Source.APIKey != "" {
		srcOpts = append(srcOpts, countboard.WithAPIKey(cfg.Source.APIKey))
	}
	if cfg.Source.Timeout != 0 {
		srcOpts = append(srcOpts, countboard.WithTimeout(cfg.Source.Timeout.Duration()))
	}

	src, err := countboard.NewSource(cfg.Source.URL, cfg.Source.Table, srcOpts...)
	if err != nil {
		return nil, err
	}

	opts := []countboard.Option{
		countboard.WithSource(src),
		countboard.WithPort(cfg.Port),
		countboard.WithPollInterval(cfg.PollInterval.Duration()),
		countboard.WithThreshold(*cfg.Threshold),
		countboard.WithRowCap(*cfg.Source.RowCap),
	}

	if cfg.Title != "" {
		opts = append(opts, countboard.WithTitle(cfg.Title))
	}

	if cfg.Polling.Mode == ModeGated {
		opts = append(opts, countboard.WithAccessCode(cfg.Polling.AccessCode))
	}

	return opts, nil
}
