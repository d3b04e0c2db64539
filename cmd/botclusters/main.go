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

// Package main is the entry point for the BotClusters supervisor.
// main 包是 BotClusters 监督器的入口点。
//
// The supervisor is a single-host daemon that:
// 监督器是一个单主机守护进程，负责：
// - Loads the workload manifest / 加载工作负载清单
// - Fetches each workload's source and installs its dependencies / 拉取每个工作负载的源码并安装其依赖
// - Runs every workload concurrently with captured logs / 并发运行所有工作负载并捕获日志
// - Stops all workloads gracefully on termination signals / 在终止信号时优雅地停止所有工作负载
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/juger1/BotClusters/internal/config"
	"github.com/juger1/BotClusters/internal/logging"
	"github.com/juger1/BotClusters/internal/supervisor"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// rootCmd is the root command for the supervisor CLI
// rootCmd 是监督器 CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "botclusters",
	Short: "BotClusters - single-host supervisor for repository-backed workloads",
	Long: `BotClusters supervises a set of named workloads, each backed by a
remote source repository.
BotClusters 监督一组命名的工作负载，每个工作负载由一个远程源码仓库支撑。

For every workload it:
对于每个工作负载，它会：
- Clones the configured branch into a clean working directory / 将配置的分支克隆到干净的工作目录
- Installs dependencies when a manifest file is present / 当存在清单文件时安装依赖
- Runs the entry point with per-workload environment variables / 使用每工作负载环境变量运行入口点
- Captures stdout and stderr into a dedicated log file / 将 stdout 和 stderr 捕获到专用日志文件`,
	RunE: runSupervisor,
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("BotClusters\n")
		fmt.Printf("  Version:    %s\n", Version)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// settingsFile is the path to the supervisor settings file
// settingsFile 是监督器设置文件的路径
var settingsFile string

func init() {
	// Add flags to root command
	// 向根命令添加标志
	rootCmd.PersistentFlags().StringVarP(&settingsFile, "config", "c", "",
		"settings file path (default: /etc/botclusters/config.yaml)")

	// Add subcommands
	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

// runSupervisor is the main entry point for the supervisor
// runSupervisor 是监督器的主入口点
func runSupervisor(cmd *cobra.Command, args []string) error {
	// Load settings / 加载设置
	settings, err := config.Load(settingsFile)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings / 验证设置
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	// Build the rotating supervisor logger / 构建轮转的监督器日志记录器
	logger := logging.New(settings.Log)
	defer logger.Sync()

	logger.Info("starting workload supervisor",
		zap.String("version", Version),
		zap.String("manifest", settings.Workload.ManifestPath))

	sup := supervisor.New(settings, logger)

	// Setup signal handling for graceful shutdown
	// 设置信号处理以实现优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Run supervisor in goroutine / 在 goroutine 中运行监督器
	errChan := make(chan error, 1)
	go func() {
		errChan <- sup.Run(context.Background())
	}()

	// Wait for signal or completion / 等待信号或完成
	select {
	case sig := <-sigChan:
		logger.Info("received termination signal", zap.String("signal", sig.String()))
		sup.Shutdown()
	case err := <-errChan:
		if err != nil {
			// The only fatal path: a configuration error before launch
			// 唯一的致命路径：启动前的配置错误
			logger.Error("supervisor failed", zap.Error(err))
			return err
		}
		logger.Info("supervisor completed its tasks")
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
