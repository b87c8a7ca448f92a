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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// gardenNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	gardenNamespace     = "garden"
	serializerSubsystem = "serializer"

	// 以下为当前使用的通用标签名。
	componentLabelName = "component"
	statusLabelName    = "status"
	opLabelName        = "op"
	formatLabelName    = "format"

	SuccessLabel = "success"
	FailLabel    = "fail"

	BuilderComponent    = "builder"
	SerializerComponent = "serializer"

	SerializeOp   = "serialize"
	DeserializeOp = "deserialize"
)

var (
	// latencyBuckets 为编解码耗时直方图的桶划分，单位为毫秒。
	// 实际桶分布为：[0.05 0.1 0.2 0.4 ... 409.6 819.2]
	latencyBuckets = prometheus.ExponentialBuckets(0.05, 2, 15)

	// sizeBuckets 为载荷大小的桶划分，单位为字节。
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 10)

	// Constructions 统计 builder / serializer 的构建次数。
	// 记忆化生效时每个工厂的成功计数至多为 1。
	Constructions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: gardenNamespace,
			Subsystem: serializerSubsystem,
			Name:      "constructions_total",
			Help:      "number of builder and serializer constructions",
		}, []string{componentLabelName, statusLabelName})

	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: gardenNamespace,
			Subsystem: serializerSubsystem,
			Name:      "operations_total",
			Help:      "number of serialize and deserialize calls",
		}, []string{opLabelName, formatLabelName, statusLabelName})

	OperationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: gardenNamespace,
			Subsystem: serializerSubsystem,
			Name:      "operation_latency",
			Help:      "latency of serialize and deserialize calls in milliseconds",
			Buckets:   latencyBuckets,
		}, []string{opLabelName, formatLabelName})

	PayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: gardenNamespace,
			Subsystem: serializerSubsystem,
			Name:      "payload_bytes",
			Help:      "size of encoded payloads in bytes",
			Buckets:   sizeBuckets,
		}, []string{opLabelName, formatLabelName})

	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标。
// 通常应在进程启动时调用一次。
func Register(r prometheus.Registerer) {
	r.MustRegister(Constructions)
	r.MustRegister(Operations)
	r.MustRegister(OperationLatency)
	r.MustRegister(PayloadBytes)
	registerMetadataMetrics(r)
	metricRegisterer = r
}

// Status 根据 err 返回 status 标签值。
func Status(err error) string {
	if err != nil {
		return FailLabel
	}
	return SuccessLabel
}

// ObserveOperation 记录一次编解码调用。size 为编码后的字节数。
func ObserveOperation(op, format string, start time.Time, size int, err error) {
	Operations.WithLabelValues(op, format, Status(err)).Inc()
	if err != nil {
		return
	}
	OperationLatency.WithLabelValues(op, format).Observe(float64(time.Since(start).Microseconds()) / 1000)
	PayloadBytes.WithLabelValues(op, format).Observe(float64(size))
}
