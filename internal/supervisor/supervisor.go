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

// Package supervisor coordinates the lifecycle of all workloads.
// supervisor 包协调所有工作负载的生命周期。
//
// This package provides:
// 此包提供：
// - Concurrent launch, one execution unit per workload / 并发启动，每个工作负载一个执行单元
// - The tracking table of running handles / 运行中句柄的跟踪表
// - Coordinated graceful-then-forced shutdown / 协调的先优雅后强制关闭
package supervisor

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/juger1/BotClusters/internal/config"
	"github.com/juger1/BotClusters/internal/phrase"
	"github.com/juger1/BotClusters/internal/runner"
)

// ErrStopTimeout indicates a workload did not stop within the graceful
// timeout and was force-killed
// ErrStopTimeout 表示工作负载未在优雅超时内停止，已被强制杀死
var ErrStopTimeout = errors.New("workload did not stop within the graceful timeout")

// stopSweepInterval is how often the shutdown path re-checks the
// tracking table for handles registered after the previous sweep began
// stopSweepInterval 是关闭路径重新检查跟踪表的间隔，
// 以发现在上一轮清扫开始后注册的句柄
const stopSweepInterval = 100 * time.Millisecond

// State represents the global supervisor state
// State 表示监督器的全局状态
type State string

const (
	// StateStarting indicates configuration is being loaded
	// StateStarting 表示正在加载配置
	StateStarting State = "starting"

	// StateRunning indicates all launch units have been dispatched
	// StateRunning 表示所有启动单元已派发
	StateRunning State = "running"

	// StateStopping indicates a termination signal triggered shutdown
	// StateStopping 表示终止信号触发了关闭
	StateStopping State = "stopping"

	// StateStopped is terminal / StateStopped 是终态
	StateStopped State = "stopped"
)

// Supervisor owns the collection of active workloads
// Supervisor 拥有活动工作负载的集合
type Supervisor struct {
	settings *config.Settings
	logger   *zap.Logger
	runner   *runner.Runner
	gen      *phrase.Generator

	// mu protects the tracking table and state
	// mu 保护跟踪表和状态
	mu sync.Mutex

	// handles maps identity to running handle; an entry exists only while
	// its process is believed to be running
	// handles 将标识映射到运行中的句柄；仅当其进程被认为在运行时条目才存在
	handles map[string]*runner.Handle

	state State

	// cancel stops launch units still in fetch or install at shutdown
	// cancel 在关闭时停止仍处于拉取或安装阶段的启动单元
	cancel context.CancelFunc

	// wg tracks launch units / wg 跟踪启动单元
	wg sync.WaitGroup
}

// New creates a Supervisor with its own tracking table
// New 创建一个拥有自己跟踪表的 Supervisor
func New(settings *config.Settings, logger *zap.Logger) *Supervisor {
	s := &Supervisor{
		settings: settings,
		logger:   logger,
		gen:      phrase.New(),
		handles:  make(map[string]*runner.Handle),
		state:    StateStarting,
	}
	s.runner = runner.New(settings.Workload, logger, s)
	return s
}

// Register records a handle once its process has started
// Register 在进程启动后记录句柄
func (s *Supervisor) Register(identity string, h *runner.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[identity] = h
}

// Deregister removes a handle once its process has terminated
// Deregister 在进程终止后移除句柄
func (s *Supervisor) Deregister(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, identity)
}

// Tracked returns the identities currently in the tracking table
// Tracked 返回当前在跟踪表中的标识
func (s *Supervisor) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	identities := make([]string, 0, len(s.handles))
	for identity := range s.handles {
		identities = append(identities, identity)
	}
	return identities
}

// State returns the global supervisor state
// State 返回监督器的全局状态
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logger.Info("supervisor state changed", zap.String("state", string(state)))
}

// Run loads the workload manifest, fans out one launch unit per workload
// and blocks until every workload has run to completion or shutdown stops
// them. A manifest error is fatal; a workload failure is not.
// Run 加载工作负载清单，为每个工作负载派发一个启动单元，并阻塞至所有
// 工作负载运行完成或被关闭停止。清单错误是致命的；工作负载故障不是。
func (s *Supervisor) Run(ctx context.Context) error {
	workloads, err := config.LoadManifest(s.settings.Workload.ManifestPath, s.gen, s.logger)
	if err != nil {
		return err
	}

	launchCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	// One execution unit per workload, all launched concurrently
	// 每个工作负载一个执行单元，全部并发启动
	for identity, spec := range workloads {
		s.wg.Add(1)
		go func(identity string, spec config.WorkloadSpec) {
			defer s.wg.Done()
			if _, err := s.runner.Run(launchCtx, identity, spec); err != nil {
				// Isolated failure, siblings are unaffected
				// 隔离的故障，其他工作负载不受影响
				s.logger.Error("workload did not start",
					zap.String("workload", identity), zap.Error(err))
			}
		}(identity, spec)
	}

	s.setState(StateRunning)

	s.wg.Wait()
	s.logger.Info("all workload units completed")
	return nil
}

// Shutdown requests graceful-then-forced stop of every tracked workload.
// Stop requests fan out concurrently, so the total shutdown time stays
// near one stop timeout regardless of workload count.
// Shutdown 请求对每个被跟踪的工作负载先优雅后强制地停止。停止请求并发
// 展开，因此总关闭时间无论工作负载数量多少都接近一个停止超时。
func (s *Supervisor) Shutdown() {
	s.setState(StateStopping)
	s.logger.Info("shutting down")

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	// Release launch units still waiting in warm-up, fetch or install;
	// the runner refuses to start a workload process once cancelled
	// 释放仍在预热、拉取或安装阶段等待的启动单元；
	// 取消后 runner 拒绝再启动工作负载进程
	if cancel != nil {
		cancel()
	}

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	// Sweep the tracking table until every launch unit has drained. A
	// unit that was mid-install when shutdown began may register its
	// handle only while an earlier sweep is waiting on the stop timeout,
	// so one snapshot is not enough.
	// 反复清扫跟踪表，直到所有启动单元排空。关闭开始时正处于安装阶段的
	// 单元，可能在先前一轮清扫等待停止超时期间才注册其句柄，
	// 因此一次快照并不足够。
	for {
		s.stopTracked()
		select {
		case <-drained:
			s.setState(StateStopped)
			s.logger.Info("all workloads stopped")
			return
		case <-time.After(stopSweepInterval):
		}
	}
}

// stopTracked stops every currently tracked workload, fanning the stop
// requests out concurrently
// stopTracked 停止当前被跟踪的所有工作负载，停止请求并发展开
func (s *Supervisor) stopTracked() {
	s.mu.Lock()
	snapshot := make([]*runner.Handle, 0, len(s.handles))
	for _, h := range s.handles {
		snapshot = append(snapshot, h)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range snapshot {
		wg.Add(1)
		go func(h *runner.Handle) {
			defer wg.Done()
			s.stopWorkload(h)
		}(h)
	}
	wg.Wait()
}

// stopWorkload stops one workload: graceful terminate, bounded wait,
// then force-kill
// stopWorkload 停止一个工作负载：优雅终止，有界等待，然后强制杀死
func (s *Supervisor) stopWorkload(h *runner.Handle) {
	log := s.logger.With(
		zap.String("workload", h.Identity),
		zap.String("run_id", h.RunID),
	)
	log.Info("stopping workload", zap.Int("pid", h.PID()))

	if err := h.Terminate(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			log.Info("workload already stopped")
			return
		}
		log.Warn("failed to signal workload", zap.Error(err))
	}

	select {
	case <-h.Done():
		log.Info("workload stopped gracefully")
	case <-time.After(s.settings.Workload.StopTimeout):
		// Timeout is handled by force-kill, it is not a failure
		// 超时由强制杀死处理，不是故障
		log.Warn("workload did not terminate in time, force killing",
			zap.Error(ErrStopTimeout))
		_ = h.Kill()
		<-h.Done()
	}
}
