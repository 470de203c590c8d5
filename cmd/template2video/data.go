package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// dataFlags collects repeated -set key=value flags.
type dataFlags map[string]string

func (d dataFlags) String() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + d[k]
	}
	return strings.Join(pairs, ",")
}

func (d dataFlags) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("ожидается key=value, получено %q", value)
	}
	d[strings.TrimSpace(key)] = val
	return nil
}

// loadData reads placeholder values from a YAML or JSON file and lets
// explicit overrides win. Scalars are kept as written.
func loadData(path string, overrides map[string]string) (map[string]string, error) {
	data := make(map[string]string)

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var doc map[string]yaml.Node
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
		}
		for k, node := range doc {
			if node.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("значение %q должно быть строкой или числом", k)
			}
			data[k] = node.Value
		}
	}

	for k, v := range overrides {
		data[k] = v
	}
	return data, nil
}
