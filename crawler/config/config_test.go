package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	c := FromEnv()
	if c.MaxConcurrentRequests != 5 {
		t.Errorf("MaxConcurrentRequests = %d, want 5", c.MaxConcurrentRequests)
	}
	if c.DomainLimit != 50 {
		t.Errorf("DomainLimit = %d, want 50", c.DomainLimit)
	}
	if len(c.SeedURLs) != 1 || c.SeedURLs[0] != "https://www.shiftdelete.net/" {
		t.Errorf("SeedURLs = %v", c.SeedURLs)
	}
}

func TestIsWhitelisted(t *testing.T) {
	c := FromEnv()
	cases := map[string]bool{
		"meb.gov.tr":     true,
		"itu.edu.tr":     true,
		"tbb.org.tr":     true,
		"shiftdelete.net": false,
	}
	for domain, want := range cases {
		if got := c.IsWhitelisted(domain); got != want {
			t.Errorf("IsWhitelisted(%q) = %v, want %v", domain, got, want)
		}
	}
}

func TestIsPriorityDomain(t *testing.T) {
	c := FromEnv()
	if !c.IsPriorityDomain("haberler.com") {
		t.Error("expected haberler.com to be a priority domain")
	}
	if c.IsPriorityDomain("example.com") {
		t.Error("expected example.com not to be a priority domain")
	}
}
