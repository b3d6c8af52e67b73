/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config reads the settings for an arrow process engine.
package config

import (
	"fmt"
	"io/ioutil"

	"github.com/Comcast/arrow/core"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// Config is the engine configuration.
//
// The zero value isn't useful; start with Default.
type Config struct {
	// ProcessCacheSize bounds the number of cached process
	// definitions.
	ProcessCacheSize int `yaml:"processCacheSize" json:"processCacheSize"`

	// StateCacheSize bounds the number of cached node states.
	StateCacheSize int `yaml:"stateCacheSize" json:"stateCacheSize"`

	// ScriptCacheSize bounds the number of compiled scripts.
	ScriptCacheSize int `yaml:"scriptCacheSize" json:"scriptCacheSize"`

	// StoreFile is the bbolt database.  Empty means in memory.
	StoreFile string `yaml:"storeFile" json:"storeFile,omitempty"`

	// LogLevel is a zap level: debug, info, warn, or error.
	LogLevel string `yaml:"logLevel" json:"logLevel"`

	// Group is the default group for deployments.
	Group string `yaml:"group" json:"group"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ProcessCacheSize: 64,
		StateCacheSize:   1024,
		ScriptCacheSize:  128,
		LogLevel:         "info",
		Group:            "default",
	}
}

// Parse reads YAML over the defaults.
func Parse(src []byte) (*Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(src, c); err != nil {
		return nil, &core.ConfigurationError{
			Component: "config",
			Problem:   err.Error(),
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the YAML file.  An empty filename gives the defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	src, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	c, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return c, nil
}

// Validate checks that the cache sizes are positive and that the log
// level is known.
func (c *Config) Validate() error {
	for _, s := range []struct {
		name string
		n    int
	}{
		{"processCacheSize", c.ProcessCacheSize},
		{"stateCacheSize", c.StateCacheSize},
		{"scriptCacheSize", c.ScriptCacheSize},
	} {
		if s.n <= 0 {
			return &core.ConfigurationError{
				Component: "config",
				Problem:   fmt.Sprintf("%s %d isn't positive", s.name, s.n),
			}
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Group == "" {
		return &core.ConfigurationError{
			Component: "config",
			Problem:   "no group",
		}
	}
	return core.CheckID("group", c.Group)
}

// Level parses the LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, &core.ConfigurationError{
			Component: "config",
			Problem:   "logLevel: " + err.Error(),
		}
	}
	return l, nil
}

// Logger makes a production zap.Logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	l, err := c.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(l)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
