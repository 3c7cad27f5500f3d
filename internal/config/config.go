// Package config loads the runtime configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

var ErrMissingCredentials = errors.New("missing credentials")

const (
	SourceGmail = "gmail"
	SourceIMAP  = "imap"

	NotifierTextbelt = "textbelt"
	NotifierTwilio   = "twilio"
	NotifierLog      = "log"

	LedgerNone     = "none"
	LedgerDynamoDB = "dynamodb"
	LedgerSQLite   = "sqlite"
)

type Config struct {
	Source     string `env:"MAIL_SOURCE" envDefault:"gmail"`
	RulesFile  string `env:"RULES_FILE" envDefault:"rules.yaml"`
	MaxResults int64  `env:"MAX_RESULTS" envDefault:"10"`
	Label      string `env:"PROCESSED_LABEL" envDefault:"G2SMS"`
	DryRun     bool   `env:"DRY_RUN" envDefault:"false"`

	Gmail    *GmailConfig
	IMAP     *IMAPConfig
	Cohere   *CohereConfig
	Notifier *NotifierConfig
	Ledger   *LedgerConfig
	Log      *LogConfig
	Serve    *ServeConfig
}

type GmailConfig struct {
	ClientID     string `env:"GMAIL_CLIENT_ID"`
	ClientSecret string `env:"GMAIL_CLIENT_SECRET"`
	RefreshToken string `env:"GMAIL_REFRESH_TOKEN"`
	RedirectURI  string `env:"GMAIL_REDIRECT_URI" envDefault:"urn:ietf:wg:oauth:2.0:oob"`
	TokenFile    string `env:"GMAIL_TOKEN_FILE"`
	Query        string `env:"GMAIL_QUERY"`
}

type IMAPConfig struct {
	Addr     string `env:"IMAP_ADDR" envDefault:"imap.gmail.com:993"`
	Username string `env:"IMAP_USERNAME"`
	Password string `env:"IMAP_PASSWORD"`
	Mailbox  string `env:"IMAP_MAILBOX" envDefault:"INBOX"`
}

type CohereConfig struct {
	APIKey string `env:"COHERE_API_KEY"`
	URL    string `env:"COHERE_URL" envDefault:"https://api.cohere.ai/v1/summarize"`
}

type NotifierConfig struct {
	Kind             string `env:"NOTIFIER" envDefault:"textbelt"`
	TextbeltAPIKey   string `env:"TEXTBELT_API_KEY"`
	TextbeltURL      string `env:"TEXTBELT_URL" envDefault:"https://textbelt.com/text"`
	PhoneNumber      string `env:"PHONE_NUMBER"`
	PhoneNumber2     string `env:"PHONE_NUMBER_2"`
	TwilioAccountSid string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `env:"TWILIO_FROM_NUMBER"`
}

type LedgerConfig struct {
	Kind   string `env:"LEDGER" envDefault:"none"`
	Table  string `env:"LEDGER_TABLE" envDefault:"g2sms-notifications"`
	Path   string `env:"LEDGER_PATH" envDefault:"g2sms.db"`
	Region string `env:"AWS_REGION" envDefault:"us-east-1"`
}

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

type ServeConfig struct {
	Schedule    string `env:"SCHEDULE" envDefault:"@every 5m"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
}

// Load reads the given .env files (missing files are ignored) and then the
// process environment. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	cfg := &Config{
		Gmail:    &GmailConfig{},
		IMAP:     &IMAPConfig{},
		Cohere:   &CohereConfig{},
		Notifier: &NotifierConfig{},
		Ledger:   &LedgerConfig{},
		Log:      &LogConfig{},
		Serve:    &ServeConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	cfg.Source = strings.ToLower(cfg.Source)
	cfg.Notifier.Kind = strings.ToLower(cfg.Notifier.Kind)
	cfg.Ledger.Kind = strings.ToLower(cfg.Ledger.Kind)

	return cfg, nil
}

// Phones returns the configured destination numbers, skipping unset ones.
func (n *NotifierConfig) Phones() []string {
	var phones []string
	for _, p := range []string{n.PhoneNumber, n.PhoneNumber2} {
		if p = strings.TrimSpace(p); p != "" {
			phones = append(phones, p)
		}
	}
	return phones
}

// NotifierKind is the backend actually used; dry runs always log.
func (c *Config) NotifierKind() string {
	if c.DryRun {
		return NotifierLog
	}
	return c.Notifier.Kind
}

// Validate checks that credentials exist for the selected backends.
func (c *Config) Validate() error {
	var missing []string

	switch c.Source {
	case SourceGmail:
		if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" {
			missing = append(missing, "GMAIL_CLIENT_ID/GMAIL_CLIENT_SECRET")
		}
		if c.Gmail.RefreshToken == "" && c.Gmail.TokenFile == "" {
			missing = append(missing, "GMAIL_REFRESH_TOKEN")
		}
	case SourceIMAP:
		if c.IMAP.Username == "" || c.IMAP.Password == "" {
			missing = append(missing, "IMAP_USERNAME/IMAP_PASSWORD")
		}
	default:
		return errors.Errorf("unknown mail source %q", c.Source)
	}

	if c.Cohere.APIKey == "" && !c.DryRun {
		missing = append(missing, "COHERE_API_KEY")
	}

	switch c.NotifierKind() {
	case NotifierTextbelt:
		if c.Notifier.TextbeltAPIKey == "" {
			missing = append(missing, "TEXTBELT_API_KEY")
		}
		if len(c.Notifier.Phones()) == 0 {
			missing = append(missing, "PHONE_NUMBER")
		}
	case NotifierTwilio:
		if c.Notifier.TwilioAccountSid == "" || c.Notifier.TwilioAuthToken == "" || c.Notifier.TwilioFromNumber == "" {
			missing = append(missing, "TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN/TWILIO_FROM_NUMBER")
		}
		if len(c.Notifier.Phones()) == 0 {
			missing = append(missing, "PHONE_NUMBER")
		}
	case NotifierLog:
	default:
		return errors.Errorf("unknown notifier %q", c.Notifier.Kind)
	}

	switch c.Ledger.Kind {
	case LedgerNone, LedgerDynamoDB, LedgerSQLite:
	default:
		return errors.Errorf("unknown ledger %q", c.Ledger.Kind)
	}

	if c.MaxResults <= 0 {
		return errors.Errorf("MAX_RESULTS must be positive, got %d", c.MaxResults)
	}

	if len(missing) > 0 {
		return errors.Wrap(ErrMissingCredentials, strings.Join(missing, ", "))
	}

	return nil
}
