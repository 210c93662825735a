package config

// DefaultRetryOn lists the gateway statuses retried when no retryOn is set.
var DefaultRetryOn = []int{502, 503, 504}

// DefaultHeaders are sent with every request unless a case overrides them.
func DefaultHeaders(version string) map[string]string {
	return map[string]string{
		"User-Agent": "hitcase/" + version,
		"Accept":     "application/json",
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "default",
		Timeout:            30000, // 30 seconds
		Retries:            0,
		RetryDelay:         1000,  // 1 second
		MaxRetryDelay:      30000, // 30 seconds
		RetryOn:            append([]int(nil), DefaultRetryOn...),
		FollowRedirects:    BoolPtr(true),
		MaxRedirects:       10,
		ValidateSSL:        BoolPtr(true),
		Concurrency:        5,
		Bail:               BoolPtr(false),
		Verbose:            BoolPtr(false),
		NoColor:            BoolPtr(false),
		LogLevel:           "info",
		ReportTitle:        "API Test Report",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.Retries == defaults.Retries &&
		c.RetryDelay == defaults.RetryDelay &&
		c.MaxRetryDelay == defaults.MaxRetryDelay &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == "" &&
		len(c.Headers) == 0 &&
		len(c.BaseURLs) == 0 &&
		c.Concurrency == defaults.Concurrency &&
		c.RateLimit == 0 &&
		c.GetBail() == defaults.GetBail()
}
