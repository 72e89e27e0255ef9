package updater

import "fmt"

// ConfigError reports a required configuration option that is missing.
type ConfigError struct {
	Key  string
	Hint string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("configuration option %q is missing", e.Key)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}
