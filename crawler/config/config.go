// Package config assembles the crawler's runtime configuration from
// environment variables, with the same defaults the original crawler
// shipped with.
package config

import (
	"time"

	"github.com/ayfilter/crawler/crawler/env"
)

// MySQL holds the queue store's connection parameters.
type MySQL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Config is the fully assembled runtime configuration.
type Config struct {
	MySQL MySQL

	SQLitePath string

	MaxConcurrentRequests int
	RequestTimeout        time.Duration
	RobotsTimeout         time.Duration
	JSRenderThreshold     int
	MinContentLength      int
	MaxErrorCount         int
	DomainLimit           int
	PriorityInterval      time.Duration

	PriorityDomains     []string
	WhitelistedDomains  []string
	SeedURLs            []string
}

// FromEnv builds a Config, applying the original crawler's defaults for
// any unset variable.
func FromEnv() Config {
	return Config{
		MySQL: MySQL{
			Host:     env.GetEnv("MYSQL_HOST", "127.0.0.1"),
			Port:     env.GetEnvAsInt("MYSQL_PORT", 3306),
			User:     env.GetEnv("MYSQL_USER", "root"),
			Password: env.GetEnv("MYSQL_PASSWORD", ""),
			Database: env.GetEnv("MYSQL_DATABASE", "ayfilter"),
		},
		SQLitePath: env.GetEnv("SQLITE_DB_PATH", "data/ayfilter_data.db"),

		MaxConcurrentRequests: env.GetEnvAsInt("MAX_CONCURRENT_REQUESTS", 5),
		RequestTimeout:        env.GetEnvAsDuration("REQUEST_TIMEOUT", 20*time.Second),
		RobotsTimeout:         env.GetEnvAsDuration("ROBOTS_TIMEOUT", 3*time.Second),
		JSRenderThreshold:     env.GetEnvAsInt("JS_RENDER_THRESHOLD", 3),
		MinContentLength:      env.GetEnvAsInt("MIN_CONTENT_LENGTH", 50),
		MaxErrorCount:         env.GetEnvAsInt("MAX_ERROR_COUNT", 3),
		DomainLimit:           env.GetEnvAsInt("DOMAIN_LIMIT", 50),
		PriorityInterval:      env.GetEnvAsDuration("PRIORITY_INTERVAL", 48*3600*time.Second),

		PriorityDomains:    []string{"haberler.com"},
		WhitelistedDomains: []string{"gov.tr", "edu.tr", "tbb.org.tr", "gov", "edu"},
		SeedURLs:           []string{"https://www.shiftdelete.net/"},
	}
}

// IsWhitelisted reports whether domain ends in any configured whitelist
// suffix.
func (c Config) IsWhitelisted(domain string) bool {
	for _, suffix := range c.WhitelistedDomains {
		if hasDomainSuffix(domain, suffix) {
			return true
		}
	}
	return false
}

// IsPriorityDomain reports whether domain is in the configured priority set.
func (c Config) IsPriorityDomain(domain string) bool {
	for _, d := range c.PriorityDomains {
		if domain == d {
			return true
		}
	}
	return false
}

func hasDomainSuffix(domain, suffix string) bool {
	if domain == suffix {
		return true
	}
	if len(domain) > len(suffix) && domain[len(domain)-len(suffix)-1:] == "."+suffix {
		return true
	}
	return false
}
