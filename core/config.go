/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import (
	"math"
	"time"

	"github.com/pelletier/go-toml"
)

var config *toml.Tree

// LoadConfig loads the pcepd configuration from the specified configuration file.
func LoadConfig(file string) {
	var err error
	config, err = toml.LoadFile(file)
	if err != nil {
		LogFatal("Config", "Unable to load configuration file: ", err)
	}
}

// LoadConfigString loads the configuration from TOML text.
func LoadConfigString(content string) error {
	tree, err := toml.Load(content)
	if err != nil {
		return err
	}
	config = tree
	return nil
}

// GetConfigIntDefault returns the integer configuration value at the specified key or the specified default value if it does not exist.
func GetConfigIntDefault(key string, def int) int {
	if config == nil {
		return def
	}
	valRaw := config.Get(key)
	if valRaw == nil {
		return def
	}
	val, ok := valRaw.(int64)
	if ok && val >= math.MinInt32 && val <= math.MaxInt32 {
		return int(val)
	}
	return def
}

// GetConfigBoolDefault returns the boolean configuration value at the specified key or the specified default value if it does not exist.
func GetConfigBoolDefault(key string, def bool) bool {
	if config == nil {
		return def
	}
	val, ok := config.Get(key).(bool)
	if ok {
		return val
	}
	return def
}

// GetConfigStringDefault returns the string configuration value at the specified key or the specified default value if it does not exist.
func GetConfigStringDefault(key string, def string) string {
	if config == nil {
		return def
	}
	valRaw := config.Get(key)
	if valRaw == nil {
		return def
	}
	val, ok := valRaw.(string)
	if ok {
		return val
	}
	return def
}

// GetConfigMillisDefault reads an integer number of milliseconds as a duration.
func GetConfigMillisDefault(key string, def time.Duration) time.Duration {
	ms := GetConfigIntDefault(key, -1)
	if ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// GetConfigArrayString returns the configuration array value at the specified key or nil if it does not exist.
func GetConfigArrayString(key string) []string {
	if config == nil {
		return nil
	}
	array := config.GetArray(key)
	if array == nil {
		return nil
	}
	if val, ok := array.([]string); ok {
		return val
	}
	return nil
}

// GetConfigTrees returns the array of tables at the specified key, e.g. [[peers]].
func GetConfigTrees(key string) []*toml.Tree {
	if config == nil {
		return nil
	}
	trees, ok := config.Get(key).([]*toml.Tree)
	if !ok {
		return nil
	}
	return trees
}
