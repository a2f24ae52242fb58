package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// errNoQuery is returned when neither a file nor piped input was given.
var errNoQuery = errors.New("no query configuration: pass -f FILE or pipe one on stdin")

// readQuery loads a query configuration from path. An empty path or "-"
// reads stdin, which must not be a terminal.
func readQuery(path string, stdin io.Reader) (*core.QueryConfiguration, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return nil, errNoQuery
		}
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read query file: %w", err)
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errNoQuery
	}
	return decodeQuery(data, filepath.Ext(path))
}

// decodeQuery decodes JSON or YAML. Files are told apart by extension,
// stdin by its first character.
func decodeQuery(data []byte, ext string) (*core.QueryConfiguration, error) {
	var cfg core.QueryConfiguration

	useYAML := false
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		useYAML = true
	case ".json":
	default:
		trimmed := bytes.TrimSpace(data)
		useYAML = len(trimmed) > 0 && trimmed[0] != '{'
	}

	if useYAML {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML query configuration: %w", err)
		}
		return &cfg, nil
	}

	// Numbers keep their decimal text until the value formatter sees them.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON query configuration: %w", err)
	}
	return &cfg, nil
}
