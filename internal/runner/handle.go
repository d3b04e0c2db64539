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

package runner

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the state of a workload
// Status 表示工作负载的状态
type Status string

const (
	// StatusPending indicates the workload has not started processing yet
	// StatusPending 表示工作负载尚未开始处理
	StatusPending Status = "pending"

	// StatusFetching indicates the source fetch is in progress
	// StatusFetching 表示源码拉取正在进行
	StatusFetching Status = "fetching"

	// StatusInstalling indicates the dependency install is in progress
	// StatusInstalling 表示依赖安装正在进行
	StatusInstalling Status = "installing"

	// StatusRunning indicates the workload process is running
	// StatusRunning 表示工作负载进程正在运行
	StatusRunning Status = "running"

	// StatusExited indicates the workload process has terminated
	// StatusExited 表示工作负载进程已终止
	StatusExited Status = "exited"

	// StatusFailed indicates the workload never reached execution
	// StatusFailed 表示工作负载未能进入执行阶段
	StatusFailed Status = "failed"
)

// Handle references one running workload process. It is created when the
// workload's executable starts and owned by the supervisor's tracking
// table until the process terminates.
// Handle 引用一个运行中的工作负载进程。在工作负载的可执行文件启动时创建，
// 由监督器的跟踪表持有，直到进程终止。
type Handle struct {
	// Identity is the workload display name used for tracking keys
	// Identity 是用作跟踪键的工作负载显示名
	Identity string

	// RunID distinguishes this launch in the supervisor log
	// RunID 在监督器日志中区分本次启动
	RunID string

	// LogPath is the captured log file of this workload
	// LogPath 是此工作负载的捕获日志文件
	LogPath string

	// StartTime is when the process started
	// StartTime 是进程启动的时间
	StartTime time.Time

	// proc is the underlying OS process (internal use)
	// proc 是底层操作系统进程（内部使用）
	proc *os.Process

	// done is closed once the process has been reaped
	// done 在进程被回收后关闭
	done chan struct{}

	// mu protects the mutable state below
	// mu 保护下面的可变状态
	mu      sync.RWMutex
	status  Status
	waitErr error
}

// NewHandle creates a handle for a started command and begins reaping it.
// The command must already have been started.
// NewHandle 为已启动的命令创建句柄并开始回收它。命令必须已经启动。
func NewHandle(identity, runID, logPath string, cmd *exec.Cmd) *Handle {
	h := &Handle{
		Identity:  identity,
		RunID:     runID,
		LogPath:   logPath,
		StartTime: time.Now(),
		proc:      cmd.Process,
		done:      make(chan struct{}),
		status:    StatusRunning,
	}

	// Reap the process exactly once; everyone else waits on Done
	// 只回收进程一次；其他人都等待 Done
	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		h.status = StatusExited
		h.waitErr = err
		h.mu.Unlock()
		close(h.done)
	}()

	return h
}

// PID returns the process ID
// PID 返回进程 ID
func (h *Handle) PID() int {
	return h.proc.Pid
}

// Status returns the current workload status
// Status 返回当前工作负载状态
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Done returns a channel closed once the process has been reaped
// Done 返回一个在进程被回收后关闭的通道
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Terminate requests graceful termination of the process
// Terminate 请求进程优雅终止
func (h *Handle) Terminate() error {
	return h.proc.Signal(syscall.SIGTERM)
}

// Kill force-kills the process
// Kill 强制杀死进程
func (h *Handle) Kill() error {
	return h.proc.Kill()
}

// WaitErr returns the process wait error; valid after Done is closed
// WaitErr 返回进程等待错误；在 Done 关闭后有效
func (h *Handle) WaitErr() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.waitErr
}
