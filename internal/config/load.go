// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"grimm.is/taepctl/internal/errors"
)

// Load reads and validates the YAML configuration at path. Config
// errors are the only class of error that aborts the process (spec
// §7): every other subsystem logs and continues.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, errors.KindValidation, "reading config file %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, errors.KindValidation, "parsing config file %s", path)
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
