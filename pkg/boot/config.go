// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package boot

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"phoenix.dev/phoenix/pkg/riscv"
)

// Config is the boot configuration.
type Config struct {
	// Harts is the number of logical processors to bring up.
	Harts int `toml:"harts"`

	// Init is the name of the bundled image to run as the init process.
	Init string `toml:"init"`

	// LogLevel is a logrus level name.
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Harts:    2,
		Init:     "init",
		LogLevel: "info",
	}
}

// LoadConfig reads a TOML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config %q: %w", path, err)
	}
	if cfg.Harts < 1 || cfg.Harts > riscv.MaxHarts {
		return Config{}, fmt.Errorf("harts must be in [1, %d], got %d", riscv.MaxHarts, cfg.Harts)
	}
	return cfg, nil
}
