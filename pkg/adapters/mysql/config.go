package mysql

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds MySQL-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Charset sent as the connection character set (e.g., "utf8mb4")
	Charset string `mapstructure:"charset"`

	// Collation for the session (e.g., "utf8mb4_general_ci")
	Collation string `mapstructure:"collation"`

	// TLS is the driver TLS mode: "true", "false", "skip-verify" or "preferred"
	TLS string `mapstructure:"tls"`

	// Timeout bounds dialing, e.g. "5s"
	Timeout time.Duration `mapstructure:"timeout"`

	// ReadTimeout bounds each read on the socket
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// Extra driver parameters appended to the DSN
	Extra map[string]string `mapstructure:"extra"`
}

// parseParams decodes the generic params map into Params.
func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid mysql params: %w", err)
	}
	return p, nil
}
