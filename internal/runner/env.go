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
	"strings"

	"go.uber.org/zap"
)

// MergeEnv overlays workload environment variables on the base process
// environment. Variables already present in base are overridden; nil
// values are skipped entirely, not set to an empty string.
// MergeEnv 将工作负载环境变量叠加到基础进程环境上。base 中已存在的变量
// 会被覆盖；nil 值会被完全跳过，而不是设为空字符串。
func MergeEnv(base []string, overrides map[string]*string, log *zap.Logger) []string {
	merged := make([]string, 0, len(base)+len(overrides))
	overridden := make(map[string]bool, len(overrides))

	for _, kv := range base {
		name, _, ok := strings.Cut(kv, "=")
		if ok {
			if value, present := overrides[name]; present && value != nil {
				merged = append(merged, name+"="+*value)
				overridden[name] = true
				log.Info("setting environment variable", zap.String("name", name))
				continue
			}
		}
		merged = append(merged, kv)
	}

	// Variables not present in the base environment / 基础环境中不存在的变量
	for name, value := range overrides {
		if value == nil || overridden[name] {
			continue
		}
		merged = append(merged, name+"="+*value)
		log.Info("setting environment variable", zap.String("name", name))
	}

	return merged
}
