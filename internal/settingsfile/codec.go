package settingsfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported settings file format")

	// ErrNilValue is returned when saving a nil setting to TOML, which has
	// no null.
	ErrNilValue = errors.New("nil value cannot be written")
)

type codec interface {
	marshal(doc map[string]any) ([]byte, error)
	unmarshal(b []byte) (map[string]any, error)
}

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return jsonCodec{}, nil
	case ".yaml", ".yml":
		return yamlCodec{}, nil
	case ".toml":
		return tomlCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

type jsonCodec struct{}

func (jsonCodec) marshal(doc map[string]any) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (jsonCodec) unmarshal(b []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

type yamlCodec struct{}

func (yamlCodec) marshal(doc map[string]any) ([]byte, error) {
	return yaml.Marshal(doc)
}

func (yamlCodec) unmarshal(b []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

type tomlCodec struct{}

func (tomlCodec) marshal(doc map[string]any) ([]byte, error) {
	if key, found := findNil(doc, ""); found {
		return nil, fmt.Errorf("%w as toml: %q", ErrNilValue, key)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) unmarshal(b []byte) (map[string]any, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(b), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// findNil returns the dotted path of the first nil inside v, walking maps
// in key order.
func findNil(v any, path string) (string, bool) {
	switch t := v.(type) {
	case nil:
		return path, true
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			p := k
			if path != "" {
				p = path + "." + k
			}
			if found, ok := findNil(t[k], p); ok {
				return found, true
			}
		}
	case []any:
		for i, e := range t {
			if found, ok := findNil(e, fmt.Sprintf("%s[%d]", path, i)); ok {
				return found, true
			}
		}
	}
	return "", false
}
