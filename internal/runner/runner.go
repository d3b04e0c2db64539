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

// Package runner owns the full lifecycle of one workload.
// runner 包拥有单个工作负载的完整生命周期。
//
// This package provides:
// 此包提供：
// - Source fetch into a clean working directory / 将源码拉取到干净的工作目录
// - Dependency installation / 依赖安装
// - Execution with per-workload environment and log capture / 使用每工作负载环境变量执行并捕获日志
// - Failure isolation between workloads / 工作负载之间的故障隔离
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juger1/BotClusters/internal/config"
)

// Common errors for workload processing
// 工作负载处理的常见错误
var (
	// ErrFetchFailed indicates the source fetch exited non-zero
	// ErrFetchFailed 表示源码拉取以非零状态退出
	ErrFetchFailed = errors.New("workload fetch failed")

	// ErrInstallFailed indicates the dependency install exited non-zero
	// ErrInstallFailed 表示依赖安装以非零状态退出
	ErrInstallFailed = errors.New("workload dependency install failed")

	// ErrExecFailed indicates a filesystem or process-spawn failure
	// ErrExecFailed 表示文件系统或进程启动失败
	ErrExecFailed = errors.New("workload execution failed")
)

// DependencyManifest is the file whose presence triggers dependency install
// DependencyManifest 是其存在会触发依赖安装的文件
const DependencyManifest = "requirements.txt"

// Interpreter is the closed set of entry-point interpreters
// Interpreter 是入口点解释器的封闭集合
type Interpreter string

const (
	// InterpreterBash runs shell-script entry points
	// InterpreterBash 运行 shell 脚本入口点
	InterpreterBash Interpreter = "bash"

	// InterpreterPython runs everything else
	// InterpreterPython 运行其他所有入口点
	InterpreterPython Interpreter = "python3"
)

// InterpreterFor selects the interpreter by entry-point file extension
// InterpreterFor 根据入口点文件扩展名选择解释器
func InterpreterFor(entryPoint string) Interpreter {
	if filepath.Ext(entryPoint) == ".sh" {
		return InterpreterBash
	}
	return InterpreterPython
}

// Command returns the executable name for the interpreter
// Command 返回解释器的可执行文件名
func (i Interpreter) Command() string {
	return string(i)
}

// Registrar tracks running workload handles. It is implemented by the
// supervisor's tracking table.
// Registrar 跟踪运行中的工作负载句柄。由监督器的跟踪表实现。
type Registrar interface {
	// Register records a handle once its process has started
	// Register 在进程启动后记录句柄
	Register(identity string, h *Handle)

	// Deregister removes a handle once its process has terminated
	// Deregister 在进程终止后移除句柄
	Deregister(identity string)
}

// Runner runs workloads to completion, one call per workload
// Runner 将工作负载运行至完成，每个工作负载调用一次
type Runner struct {
	// rootDir holds one working directory per workload
	// rootDir 为每个工作负载保存一个工作目录
	rootDir string

	// logDir holds one captured log file per workload
	// logDir 为每个工作负载保存一个捕获的日志文件
	logDir string

	// warmup is the fixed delay applied before fetch begins
	// warmup 是拉取开始前施加的固定延迟
	warmup time.Duration

	logger    *zap.Logger
	registrar Registrar
}

// New creates a Runner
// New 创建一个 Runner
func New(cfg config.WorkloadSettings, logger *zap.Logger, registrar Registrar) *Runner {
	return &Runner{
		rootDir:   cfg.RootDir,
		logDir:    cfg.LogDir,
		warmup:    cfg.WarmupDelay,
		logger:    logger,
		registrar: registrar,
	}
}

// Sanitize derives a filesystem-safe directory name from an identity
// Sanitize 从标识派生出文件系统安全的目录名
func Sanitize(identity string) string {
	return strings.ReplaceAll(identity, " ", "_")
}

// PrepareWorkdir ensures a clean empty working directory exists
// PrepareWorkdir 确保存在一个干净的空工作目录
func PrepareWorkdir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// Run executes the full lifecycle of one workload and blocks until its
// process exits. It returns the captured log path on success.
// Run 执行一个工作负载的完整生命周期，并阻塞至其进程退出。成功时返回捕获的日志路径。
//
// Every failure is caught here and returned as an error; it must never
// escalate past this boundary and abort sibling workloads.
// 所有故障都在此捕获并作为错误返回；绝不能越过此边界并中止其他工作负载。
func (r *Runner) Run(ctx context.Context, identity string, spec config.WorkloadSpec) (string, error) {
	runID := uuid.NewString()
	log := r.logger.With(
		zap.String("workload", identity),
		zap.String("run_id", runID),
	)

	log.Info("starting workload", zap.String("state", string(StatusPending)))

	// Warm-up delay so simultaneous launches don't hammer shared resources
	// 预热延迟，避免同时启动冲击共享资源
	select {
	case <-time.After(r.warmup):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	workdir := filepath.Join(r.rootDir, Sanitize(identity))
	if err := PrepareWorkdir(workdir); err != nil {
		log.Error("failed to prepare working directory",
			zap.String("state", string(StatusFailed)),
			zap.String("dir", workdir), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrExecFailed, err)
	}

	// Fetch source at the configured ref / 按配置的引用拉取源码
	log.Info("cloning workload source",
		zap.String("state", string(StatusFetching)),
		zap.String("source", spec.Source),
		zap.String("branch", spec.Branch))
	clone := exec.CommandContext(ctx, "git", "clone",
		"-b", spec.Branch, "--single-branch", spec.Source, workdir)
	if out, err := clone.CombinedOutput(); err != nil {
		log.Error("failed to clone workload source",
			zap.String("state", string(StatusFailed)),
			zap.String("output", string(bytes.TrimSpace(out))), zap.Error(err))
		return "", fmt.Errorf("%w: %s", ErrFetchFailed, bytes.TrimSpace(out))
	}

	// Install dependencies only when the manifest file exists
	// 仅当清单文件存在时才安装依赖
	reqFile := filepath.Join(workdir, DependencyManifest)
	if _, err := os.Stat(reqFile); err == nil {
		log.Info("installing workload dependencies",
			zap.String("state", string(StatusInstalling)))
		install := exec.CommandContext(ctx, "pip", "install", "--no-cache-dir", "-r", reqFile)
		install.Dir = workdir
		if out, err := install.CombinedOutput(); err != nil {
			log.Error("failed to install workload dependencies",
				zap.String("state", string(StatusFailed)),
				zap.String("output", string(bytes.TrimSpace(out))), zap.Error(err))
			return "", fmt.Errorf("%w: %s", ErrInstallFailed, bytes.TrimSpace(out))
		}
	}

	// Open the per-workload log file / 打开每工作负载日志文件
	if err := os.MkdirAll(r.logDir, 0755); err != nil {
		log.Error("failed to create log directory",
			zap.String("state", string(StatusFailed)), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrExecFailed, err)
	}
	logPath := filepath.Join(r.logDir, identity+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Error("failed to create workload log file",
			zap.String("state", string(StatusFailed)),
			zap.String("log_path", logPath), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrExecFailed, err)
	}
	defer logFile.Close()

	// Execute the entry point with the merged environment
	// 使用合并后的环境变量执行入口点
	interp := InterpreterFor(spec.Run)
	entry := filepath.Join(workdir, spec.Run)
	cmd := exec.Command(interp.Command(), entry)
	cmd.Dir = workdir
	cmd.Env = MergeEnv(os.Environ(), spec.Env, log)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// Separate process group, so the supervisor's own termination signal
	// does not reach workload processes before the coordinated stop does
	// 独立进程组，使监督器自身的终止信号不会先于协调停止到达工作负载进程
	setProcGroupAttr(cmd)

	// Shutdown may have begun while dependencies were installing; once
	// the launch context is cancelled no workload process may start,
	// otherwise it would escape the coordinated stop
	// 关闭可能在依赖安装期间开始；启动上下文一旦取消就不得再启动
	// 工作负载进程，否则它会逃过协调停止
	if err := ctx.Err(); err != nil {
		log.Info("launch cancelled before execution")
		return "", err
	}

	log.Info("executing workload entry point",
		zap.String("interpreter", interp.Command()),
		zap.String("entry_point", spec.Run))
	if err := cmd.Start(); err != nil {
		log.Error("failed to start workload process",
			zap.String("state", string(StatusFailed)), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrExecFailed, err)
	}

	h := NewHandle(identity, runID, logPath, cmd)
	r.registrar.Register(identity, h)
	log.Info("workload running",
		zap.String("state", string(StatusRunning)),
		zap.Int("pid", h.PID()),
		zap.String("log_path", logPath))

	// Blocks for the workload's entire run / 阻塞至工作负载运行结束
	<-h.Done()
	waitErr := h.WaitErr()
	r.registrar.Deregister(identity)

	// A non-zero workload exit is reported, not treated as a runner failure
	// 工作负载非零退出只做报告，不视为 runner 故障
	if waitErr != nil {
		log.Warn("workload exited with error",
			zap.String("state", string(StatusExited)), zap.Error(waitErr))
	} else {
		log.Info("workload exited",
			zap.String("state", string(StatusExited)),
			zap.String("log_path", logPath))
	}

	return logPath, nil
}
