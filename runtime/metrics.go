// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"math/big"

	"github.com/lsmpool/lsmpool/metrics"
)

var (
	big1 = big.NewInt(1)

	metricRequestCount    = metrics.LazyLoadCounterVec("runtime_requests_count", []string{"method", "result"})
	metricRequestDuration = metrics.LazyLoadHistogramVec("runtime_request_duration_ms", []string{"method"}, metrics.BucketRuntimeReqs)
)
