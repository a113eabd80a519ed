package endpoint

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultKeepalive is used when a client endpoint's keep-alive is left at
// zero, grounded on the teacher's clients.go defaultKeepalive constant.
const defaultKeepalive uint16 = 60

// AutoResponse controls whether the dispatcher synthesizes PUBACK/PUBREC/
// PUBREL/PUBCOMP automatically, per spec §4.C's "auto-response policy".
type AutoResponse struct {
	// Enabled: when false, the user's callback is responsible for
	// calling the matching response API itself.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Async: when true, the automatic response is sent through the
	// write pipeline; when false, synchronously.
	Async bool `yaml:"async" json:"async"`
}

// Options holds an endpoint's pre-connect configuration.
type Options struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	CleanSession bool   `yaml:"clean_session" json:"clean_session"`
	UserName     string `yaml:"user_name" json:"user_name"`
	Password     string `yaml:"password" json:"password"`
	KeepAlive    uint16 `yaml:"keep_alive" json:"keep_alive"`

	AutoPubResponse AutoResponse `yaml:"auto_pub_response" json:"auto_pub_response"`

	// Logger specifies a custom log/slog logger to use in place of the
	// default. See the teacher's Options.Logger for the same pattern.
	Logger *slog.Logger `yaml:"-" json:"-"`
}

// ensureDefaults fills in sane defaults for zero-valued fields, mirroring
// the teacher's Options.ensureDefaults.
func (o *Options) ensureDefaults() {
	if o.KeepAlive == 0 {
		o.KeepAlive = defaultKeepalive
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
}

// Config is the top-level YAML document shape for LoadOptions, grounded
// on the teacher's config.go Config struct.
type Config struct {
	Endpoint struct {
		Options `yaml:"options"`
	} `yaml:"endpoint"`
}

// LoadOptions reads and parses an endpoint's Options from a YAML file at
// path. An empty path is not an error; it returns (nil, nil).
func LoadOptions(path string) (*Options, error) {
	if path == "" {
		slog.Default().Debug("no file path provided")
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg.Endpoint.Options, nil
}
