/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config provides configuration management for the supervisor.
// config 包提供监督器的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Environment variables / 环境变量
// 2. Settings file / 配置文件
// 3. Default values / 默认值
//
// The workload manifest is a separate document, see manifest.go.
// 工作负载清单是一个独立的文档，见 manifest.go。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
// 默认配置值
const (
	DefaultSettingsPath = "/etc/botclusters/config.yaml"
	DefaultManifestPath = "config.json"
	DefaultRootDir      = "/app"
	DefaultLogDir       = "/app/logs"
	DefaultWarmupDelay  = 5 * time.Second
	DefaultStopTimeout  = 5 * time.Second
	DefaultLogLevel     = "info"
	DefaultLogFile      = "botclusters.log"
	DefaultLogMaxSize   = 5 // MB
	DefaultLogMaxBackup = 3
	DefaultLogMaxAge    = 7 // days
)

// Settings represents the supervisor configuration
// Settings 表示监督器配置
type Settings struct {
	// Workload holds workload lifecycle settings / 工作负载生命周期设置
	Workload WorkloadSettings `mapstructure:"workload"`

	// Log holds supervisor log settings / 监督器日志设置
	Log LogSettings `mapstructure:"log"`
}

// WorkloadSettings contains workload lifecycle settings
// WorkloadSettings 包含工作负载生命周期设置
type WorkloadSettings struct {
	// ManifestPath is the path to the workload manifest document
	// ManifestPath 是工作负载清单文档的路径
	ManifestPath string `mapstructure:"manifest_path"`

	// RootDir is the directory that holds one working directory per workload
	// RootDir 是为每个工作负载保存一个工作目录的目录
	RootDir string `mapstructure:"root_dir"`

	// LogDir is the directory that holds one log file per workload
	// LogDir 是为每个工作负载保存一个日志文件的目录
	LogDir string `mapstructure:"log_dir"`

	// WarmupDelay is the fixed delay applied before each fetch begins,
	// to avoid a thundering herd when many workloads start at once
	// WarmupDelay 是每次拉取前施加的固定延迟，
	// 避免大量工作负载同时启动时的惊群效应
	WarmupDelay time.Duration `mapstructure:"warmup_delay"`

	// StopTimeout is how long a graceful stop may take before force-kill
	// StopTimeout 是优雅停止在强制杀死前允许的最长时间
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
}

// LogSettings contains supervisor log settings
// LogSettings 包含监督器日志设置
type LogSettings struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level"`

	// File is the supervisor log file path
	// File 是监督器日志文件路径
	File string `mapstructure:"file"`

	// MaxSize is the maximum size of the log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age"`
}

// Load loads settings from file and environment variables
// Load 从文件和环境变量加载设置
func Load(settingsPath string) (*Settings, error) {
	v := viper.New()

	// Set default values / 设置默认值
	setDefaults(v)

	// Set settings file path / 设置配置文件路径
	if settingsPath != "" {
		v.SetConfigFile(settingsPath)
	} else {
		// Check environment variable / 检查环境变量
		envPath := os.Getenv("BOTCLUSTERS_CONFIG_PATH")
		if envPath != "" {
			v.SetConfigFile(envPath)
		} else {
			v.SetConfigFile(DefaultSettingsPath)
		}
	}

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix("BOTCLUSTERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read settings file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// A missing settings file is not an error, defaults cover it
		// 缺少配置文件不是错误，默认值可以覆盖
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read settings file: %w", err)
			}
		}
	}

	// Unmarshal settings / 解析设置
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	return &s, nil
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Workload defaults / 工作负载默认值
	v.SetDefault("workload.manifest_path", DefaultManifestPath)
	v.SetDefault("workload.root_dir", DefaultRootDir)
	v.SetDefault("workload.log_dir", DefaultLogDir)
	v.SetDefault("workload.warmup_delay", DefaultWarmupDelay)
	v.SetDefault("workload.stop_timeout", DefaultStopTimeout)

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", DefaultLogFile)
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackup)
	v.SetDefault("log.max_age", DefaultLogMaxAge)
}

// Validate validates the settings
// Validate 验证设置
func (s *Settings) Validate() error {
	if s.Workload.ManifestPath == "" {
		return errors.New("workload.manifest_path is required")
	}
	if s.Workload.RootDir == "" {
		return errors.New("workload.root_dir is required")
	}
	if s.Workload.LogDir == "" {
		return errors.New("workload.log_dir is required")
	}
	if s.Workload.WarmupDelay < 0 {
		return errors.New("workload.warmup_delay must not be negative")
	}
	if s.Workload.StopTimeout < time.Second {
		return errors.New("workload.stop_timeout must be at least 1 second")
	}

	// Validate log level / 验证日志级别
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", s.Log.Level)
	}

	return nil
}

// String returns a string representation of the settings (for debugging)
// String 返回设置的字符串表示（用于调试）
func (s *Settings) String() string {
	return fmt.Sprintf(
		"Settings{Workload.ManifestPath: %s, Workload.RootDir: %s, Workload.StopTimeout: %v, Log.Level: %s}",
		s.Workload.ManifestPath,
		s.Workload.RootDir,
		s.Workload.StopTimeout,
		s.Log.Level,
	)
}
