package flagutil

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/jirafeed/jirafeed/internal/config"
)

// JiraOptions holds Jira connection flags. Flag values override the
// corresponding configuration file fields when set.
type JiraOptions struct {
	endpoint  string
	email     string
	tokenFile string
	insecure  bool
	timeout   time.Duration
}

// AddPFlags injects Jira connection options into the given pflag.FlagSet
func (o *JiraOptions) AddPFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.endpoint, "jira.endpoint", "", "Jira endpoint URL (overrides the configuration file)")
	fs.StringVar(&o.email, "jira.email", "", "Jira account email for basic auth (overrides the configuration file)")
	fs.StringVar(&o.tokenFile, "jira.api-token-file", "", "Path to a file containing the Jira API token (overrides the configuration file)")
	fs.BoolVar(&o.insecure, "jira.insecure-skip-tls-verify", false, "Skip TLS certificate verification")
	fs.DurationVar(&o.timeout, "jira.timeout", 0, "Per-request timeout (overrides the configuration file)")
}

// ApplyTo overlays set flag values onto the loaded configuration.
func (o *JiraOptions) ApplyTo(cfg *config.Config) {
	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
	}
	if o.email != "" {
		cfg.Email = o.email
	}
	if o.tokenFile != "" {
		cfg.APITokenFile = o.tokenFile
		cfg.APIToken = ""
	}
	if o.insecure {
		verify := false
		cfg.VerifySSL = &verify
	}
	if o.timeout > 0 {
		cfg.TimeoutSeconds = int(o.timeout / time.Second)
	}
}
