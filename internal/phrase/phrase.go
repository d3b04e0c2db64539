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

// Package phrase generates human-distinguishing display prefixes for workloads.
// phrase 包为工作负载生成便于人类区分的显示前缀。
package phrase

import (
	"math/rand"
	"sync"
	"time"
)

// WordList is the fixed vocabulary the generator draws from.
// WordList 是生成器取词的固定词汇表。
var WordList = []string{
	"amber", "bold", "brave", "bright", "calm", "clever", "cosmic", "crimson",
	"crystal", "daring", "dawn", "eager", "ember", "fierce", "frost", "gentle",
	"golden", "hidden", "iron", "ivory", "jade", "keen", "lively", "lunar",
	"mellow", "misty", "noble", "ocean", "onyx", "polar", "quiet", "rapid",
	"royal", "ruby", "rustic", "sage", "scarlet", "shadow", "silent", "silver",
	"solar", "steady", "stormy", "swift", "thunder", "timber", "vivid", "wild",
	"winter", "zephyr",
}

// Generator produces two-word display prefixes.
// Generator 生成双词显示前缀。
//
// There is no uniqueness guarantee across calls; callers that need
// distinct names must handle collisions themselves.
// 调用之间没有唯一性保证；需要不同名称的调用方必须自行处理冲突。
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates a Generator seeded from the current time.
// New 创建一个以当前时间为种子的 Generator。
func New() *Generator {
	return NewWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a Generator with an explicit randomness source.
// NewWithRand 使用显式的随机源创建 Generator。
func NewWithRand(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// Generate draws two words independently, uniformly at random, with
// replacement, and joins them with a single space.
// Generate 独立、均匀、有放回地随机抽取两个词，并用单个空格连接。
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	word1 := WordList[g.rnd.Intn(len(WordList))]
	word2 := WordList[g.rnd.Intn(len(WordList))]
	return word1 + " " + word2
}
