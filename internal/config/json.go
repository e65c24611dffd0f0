package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/filex"
	"github.com/tidwall/jsonc"
)

// fileConfig is the on-disk form. Pointer fields tell a missing key apart
// from a zero value.
type fileConfig struct {
	Driver            *string `json:"driver"`
	ConnectionString  *string `json:"connection_string"`
	IsDatabaseCreated *bool   `json:"is_database_created"`
	Debug             *bool   `json:"debug"`
	StationNumber     *int    `json:"station_number"`
	LogDir            *string `json:"log_dir"`
	DefaultLoginFile  *string `json:"default_login_file"`
}

func toFile(c *Config) fileConfig {
	return fileConfig{
		Driver:            &c.Driver,
		ConnectionString:  &c.ConnectionString,
		IsDatabaseCreated: &c.IsDatabaseCreated,
		Debug:             &c.Debug,
		StationNumber:     &c.StationNumber,
		LogDir:            &c.LogDir,
		DefaultLoginFile:  &c.DefaultLoginFile,
	}
}

// merge copies present fields of f into c and reports whether any field
// was missing.
func merge(c *Config, f fileConfig) (missing bool) {
	if f.Driver != nil {
		c.Driver = *f.Driver
	} else {
		missing = true
	}
	if f.ConnectionString != nil {
		c.ConnectionString = *f.ConnectionString
	} else {
		missing = true
	}
	if f.IsDatabaseCreated != nil {
		c.IsDatabaseCreated = *f.IsDatabaseCreated
	} else {
		missing = true
	}
	if f.Debug != nil {
		c.Debug = *f.Debug
	} else {
		missing = true
	}
	if f.StationNumber != nil {
		c.StationNumber = *f.StationNumber
	} else {
		missing = true
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	} else {
		missing = true
	}
	if f.DefaultLoginFile != nil {
		c.DefaultLoginFile = *f.DefaultLoginFile
	} else {
		missing = true
	}
	return missing
}

// loadFile overlays the config file on c. A missing file is created from
// c; a file lacking some keys is rewritten with them filled in.
func loadFile(c *Config) error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return c.Save()
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", common.ErrConfigurationInvalid, c.path, err)
	}

	var f fileConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return fmt.Errorf("%w: parse %s: %w", common.ErrConfigurationInvalid, c.path, err)
	}

	if merge(c, f) {
		return c.Save()
	}
	return nil
}

// Save writes c to its file. The connection string may carry a password,
// so the file is private to the owner.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(toFile(c), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := filex.WritePrivateFile(c.path, append(data, '\n')); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
