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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/juger1/BotClusters/internal/phrase"
)

// Common errors for manifest loading
// 清单加载的常见错误
var (
	// ErrMissingField indicates a workload entry is missing a required field
	// ErrMissingField 表示工作负载条目缺少必需字段
	ErrMissingField = errors.New("workload configuration is missing required fields")

	// ErrInvalidSource indicates a workload source is not a network URI
	// ErrInvalidSource 表示工作负载源不是网络 URI
	ErrInvalidSource = errors.New("invalid workload source URL")
)

// DefaultBranch is the ref cloned when a workload does not name one
// DefaultBranch 是工作负载未指定时克隆的引用
const DefaultBranch = "main"

// WorkloadSpec describes one workload to supervise, loaded once at startup
// WorkloadSpec 描述一个要监督的工作负载，启动时加载一次
type WorkloadSpec struct {
	// Source is the URI of the remote repository holding the workload code
	// Source 是保存工作负载代码的远程仓库 URI
	Source string

	// Run is the relative path of the entry point inside the repository
	// Run 是仓库内入口点的相对路径
	Run string

	// Env maps variable names to values; a nil value means the variable
	// is skipped entirely, not set to an empty string
	// Env 将变量名映射到值；nil 值表示完全跳过该变量，而不是设为空字符串
	Env map[string]*string

	// Branch is the ref to clone, defaulting to DefaultBranch
	// Branch 是要克隆的引用，默认为 DefaultBranch
	Branch string
}

// manifestEntry mirrors one raw manifest object. Pointer fields
// distinguish an absent key from a present-but-empty one.
// manifestEntry 映射一个原始清单对象。指针字段用于区分键缺失和键存在但为空。
type manifestEntry struct {
	Source *string             `json:"source"`
	Run    *string             `json:"run"`
	Env    *map[string]*string `json:"env"`
	Branch *string             `json:"branch"`
}

// LoadManifest reads the workload manifest and returns the full set of
// workloads keyed by their generated display identity.
// LoadManifest 读取工作负载清单，并返回以生成的显示标识为键的全部工作负载集合。
//
// Loading is all-or-nothing: any missing required field or invalid source
// aborts the whole load before any workload launches.
// 加载是全有或全无的：任何缺失的必需字段或无效的源都会在任何工作负载启动前中止整个加载。
func LoadManifest(path string, gen *phrase.Generator, logger *zap.Logger) (map[string]WorkloadSpec, error) {
	logger.Info("loading workload manifest", zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var raw map[string]manifestEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	workloads := make(map[string]WorkloadSpec, len(raw))
	for name, entry := range raw {
		prefix := gen.Generate()
		logger.Info("generated prefix", zap.String("prefix", prefix))
		identity := prefix + " " + name

		// All three of source, run and env must be present
		// source、run 和 env 三者必须全部存在
		if entry.Source == nil || entry.Run == nil || entry.Env == nil {
			logger.Error("workload configuration is missing required fields",
				zap.String("workload", identity))
			return nil, fmt.Errorf("%w: %s", ErrMissingField, identity)
		}

		// The source must be fetchable over the network
		// 源必须可以通过网络拉取
		if !strings.HasPrefix(*entry.Source, "http") {
			logger.Error("invalid source URL for workload",
				zap.String("workload", identity),
				zap.String("source", *entry.Source))
			return nil, fmt.Errorf("%w: %s", ErrInvalidSource, identity)
		}

		branch := DefaultBranch
		if entry.Branch != nil && *entry.Branch != "" {
			branch = *entry.Branch
		}

		workloads[identity] = WorkloadSpec{
			Source: *entry.Source,
			Run:    *entry.Run,
			Env:    *entry.Env,
			Branch: branch,
		}
		logger.Info("loaded workload configuration", zap.String("workload", identity))
	}

	logger.Info("workload manifest loading complete", zap.Int("workloads", len(workloads)))
	return workloads, nil
}
