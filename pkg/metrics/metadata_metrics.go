// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metadataSubsystem = "metadata"
	sourceLabelName   = "source"

	// 类元数据的来源。
	CacheSource   = "cache"
	CompileSource = "compile"
)

var (
	MetadataLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: gardenNamespace,
			Subsystem: metadataSubsystem,
			Name:      "loads_total",
			Help:      "类元数据加载次数，按来源（文件缓存命中或重新编译）区分",
		}, []string{sourceLabelName})

	MetadataCacheFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: gardenNamespace,
		Subsystem: metadataSubsystem,
		Name:      "cache_failures_total",
		Help:      "读写元数据文件缓存失败的次数，失败不影响序列化",
	})
)

func registerMetadataMetrics(r prometheus.Registerer) {
	r.MustRegister(MetadataLoads)
	r.MustRegister(MetadataCacheFailures)
}
