//go:build !tinygo

package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"clockcycle-go/errcode"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML overlay from path on top of Default.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse overlays b on top of Default (or on the preset named by
// board.name when the overlay sets one). Unknown keys are rejected.
func Parse(b []byte) (Config, error) {
	var probe struct {
		Board struct {
			Name string `yaml:"name"`
		} `yaml:"board"`
	}
	if err := yaml.Unmarshal(b, &probe); err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidParams, "config.parse", "", err)
	}
	c := Default()
	if probe.Board.Name != "" {
		p, ok := BoardLookup(probe.Board.Name)
		if !ok {
			return Config{}, errcode.Wrap(errcode.InvalidParams, "config.parse", "unknown board "+probe.Board.Name, nil)
		}
		c = p
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errcode.Wrap(errcode.InvalidParams, "config.parse", "", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
