package awsconfig

import (
	"fmt"

	"gopkg.in/ini.v1"

	errUtils "awsom/errors"
)

var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	SkipUnrecognizableLines: true,
	KeyValueDelimiters:      "=",
}

// loadINI parses the whole file for read-side queries. Writes never go
// through ini.v1 because it does not preserve formatting.
func loadINI(path string) (*ini.File, error) {
	text, err := readFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := ini.LoadSources(loadOptions, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", errUtils.ErrConfig, path, err)
	}
	return cfg, nil
}

func keyString(sec *ini.Section, key string) string {
	if !sec.HasKey(key) {
		return ""
	}
	return sec.Key(key).String()
}
