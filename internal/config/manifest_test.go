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
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juger1/BotClusters/internal/phrase"
)

// writeManifest writes a manifest document into a temp file
// writeManifest 将清单文档写入临时文件
func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testGenerator() *phrase.Generator {
	return phrase.NewWithRand(rand.New(rand.NewSource(7)))
}

// TestLoadManifest tests loading a valid manifest
// TestLoadManifest 测试加载有效清单
func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `{
		"echo": {
			"source": "https://example.test/repo.git",
			"run": "echo.py",
			"env": {"A": "1", "B": null}
		},
		"relay": {
			"source": "http://example.test/relay.git",
			"run": "start.sh",
			"branch": "stable",
			"env": {}
		}
	}`)

	workloads, err := LoadManifest(path, testGenerator(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, workloads, 2)

	var echoIdentity, relayIdentity string
	for identity := range workloads {
		switch {
		case strings.HasSuffix(identity, " echo"):
			echoIdentity = identity
		case strings.HasSuffix(identity, " relay"):
			relayIdentity = identity
		}
	}
	require.NotEmpty(t, echoIdentity)
	require.NotEmpty(t, relayIdentity)

	// Identity is the base name prefixed by a two-word label
	// 标识是以双词标签为前缀的基础名
	assert.Len(t, strings.Fields(echoIdentity), 3)

	echo := workloads[echoIdentity]
	assert.Equal(t, "https://example.test/repo.git", echo.Source)
	assert.Equal(t, "echo.py", echo.Run)
	assert.Equal(t, DefaultBranch, echo.Branch)

	// Null env values stay present as nil, to be skipped at launch
	// null 环境变量值保持为 nil，在启动时被跳过
	require.Contains(t, echo.Env, "A")
	require.Contains(t, echo.Env, "B")
	require.NotNil(t, echo.Env["A"])
	assert.Equal(t, "1", *echo.Env["A"])
	assert.Nil(t, echo.Env["B"])

	relay := workloads[relayIdentity]
	assert.Equal(t, "stable", relay.Branch)
	assert.Empty(t, relay.Env)
}

// TestLoadManifestMissingField tests the all-or-nothing load
// TestLoadManifestMissingField 测试全有或全无的加载
func TestLoadManifestMissingField(t *testing.T) {
	cases := map[string]string{
		"NoSource": `{"ok": {"source": "https://x/r.git", "run": "a.py", "env": {}},
			"bad": {"run": "a.py", "env": {}}}`,
		"NoRun": `{"bad": {"source": "https://x/r.git", "env": {}}}`,
		"NoEnv": `{"bad": {"source": "https://x/r.git", "run": "a.py"}}`,
		"NullEnv": `{"bad": {"source": "https://x/r.git", "run": "a.py", "env": null}}`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			workloads, err := LoadManifest(writeManifest(t, content), testGenerator(), zap.NewNop())
			require.ErrorIs(t, err, ErrMissingField)
			// No workload from the document may survive / 文档中的任何工作负载都不得保留
			assert.Nil(t, workloads)
		})
	}
}

// TestLoadManifestInvalidSource tests source scheme validation
// TestLoadManifestInvalidSource 测试源协议验证
func TestLoadManifestInvalidSource(t *testing.T) {
	path := writeManifest(t, `{
		"bad": {"source": "git@example.test:repo.git", "run": "a.py", "env": {}}
	}`)

	workloads, err := LoadManifest(path, testGenerator(), zap.NewNop())
	require.ErrorIs(t, err, ErrInvalidSource)
	assert.Nil(t, workloads)
}

// TestLoadManifestMalformedDocument tests that bad JSON is fatal
// TestLoadManifestMalformedDocument 测试损坏的 JSON 是致命的
func TestLoadManifestMalformedDocument(t *testing.T) {
	_, err := LoadManifest(writeManifest(t, `{"echo": `), testGenerator(), zap.NewNop())
	require.Error(t, err)
}

// TestLoadManifestMissingFile tests that a missing manifest is fatal
// TestLoadManifestMissingFile 测试清单文件缺失是致命的
func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "none.json"), testGenerator(), zap.NewNop())
	require.Error(t, err)
}

// TestLoadManifestEmptyDocument tests that zero workloads is valid
// TestLoadManifestEmptyDocument 测试零个工作负载是有效的
func TestLoadManifestEmptyDocument(t *testing.T) {
	workloads, err := LoadManifest(writeManifest(t, `{}`), testGenerator(), zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, workloads)
}
