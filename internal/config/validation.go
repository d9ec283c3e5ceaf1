package config

import (
	"fmt"
	"net/url"
	"time"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// Validate checks cross-field constraints the decoder cannot express.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return foundation.ConfigError("base_url is required").Build()
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return foundation.WrapError(err, foundation.CategoryConfig, "base_url is not a valid URL").
			WithContext("base_url", c.BaseURL).Fatal().Build()
	}

	langs := sets.New(c.DefaultLanguage)
	for _, l := range c.Languages {
		if l.Code == "" {
			return foundation.ConfigError("language code must not be empty").Build()
		}
		if langs.Has(l.Code) {
			return foundation.ConfigError("language configured twice").WithContext("lang", l.Code).Build()
		}
		langs.Add(l.Code)
	}

	seen := sets.New[string]()
	for _, t := range c.Taxonomies {
		if t.Name == "" {
			return foundation.ConfigError("taxonomy name must not be empty").Build()
		}
		if !langs.Has(t.Lang) {
			return foundation.ConfigError("taxonomy declared for an unknown language").
				WithContext("taxonomy", t.Name).WithContext("lang", t.Lang).Build()
		}
		key := t.Lang + "/" + t.Name
		if seen.Has(key) {
			return foundation.ConfigError("taxonomy declared twice for the same language").
				WithContext("taxonomy", t.Name).WithContext("lang", t.Lang).Build()
		}
		seen.Add(key)
		if t.PaginateBy < 0 {
			return foundation.ConfigError("taxonomy paginate_by must not be negative").
				WithContext("taxonomy", t.Name).Build()
		}
	}

	for name, raw := range map[string]string{
		"link_check.timeout":             c.LinkCheck.Timeout,
		"link_check.retry_initial_delay": c.LinkCheck.RetryInitial,
		"link_check.retry_max_delay":     c.LinkCheck.RetryMax,
	} {
		if _, err := time.ParseDuration(raw); err != nil {
			return foundation.WrapError(err, foundation.CategoryConfig, fmt.Sprintf("%s is not a duration", name)).
				WithContext("value", raw).Fatal().Build()
		}
	}
	if c.FeedLimit < 0 {
		return foundation.ConfigError("feed_limit must not be negative").Build()
	}
	return nil
}

// Durations parses the link checker's duration settings. Validate has already
// rejected malformed values, so parse failures here fall back to zero.
func (lc LinkCheckConfig) Durations() (timeout, initial, maxDelay time.Duration) {
	timeout, _ = time.ParseDuration(lc.Timeout)
	initial, _ = time.ParseDuration(lc.RetryInitial)
	maxDelay, _ = time.ParseDuration(lc.RetryMax)
	return timeout, initial, maxDelay
}
