package http

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	appStartedAtUnix = time.Now().Unix()
	inFlightRequests int64
	metricsMu        sync.Mutex
	httpSeries       = map[httpMetricKey]*httpMetricSeries{}
	sessionOpSeries  = map[sessionOpMetricKey]*sessionOpMetricSeries{}
	externalSeries   = map[externalMetricKey]*externalMetricSeries{}
	batchLoadSeries  = map[batchLoadMetricKey]*batchLoadMetricSeries{}
)

func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		metricsMu.Lock()
		keys := make([]httpMetricKey, 0, len(httpSeries))
		for k := range httpSeries {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Method != keys[j].Method {
				return keys[i].Method < keys[j].Method
			}
			if keys[i].Path != keys[j].Path {
				return keys[i].Path < keys[j].Path
			}
			return keys[i].Status < keys[j].Status
		})
		snapshot := make([]struct {
			Key    httpMetricKey
			Series httpMetricSeries
		}, 0, len(keys))
		for _, k := range keys {
			s := httpSeries[k]
			snapshot = append(snapshot, struct {
				Key    httpMetricKey
				Series httpMetricSeries
			}{Key: k, Series: *s})
		}
		metricsMu.Unlock()

		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_http_requests_total Total HTTP requests handled by this app.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_http_requests_total counter")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_http_requests_total{method=%q,path=%q,status=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.Count)
		}

		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_http_request_duration_seconds_sum Total duration in seconds for observed requests.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_http_request_duration_seconds_sum counter")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %.9f\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.DurationSecondsSum)
		}

		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_http_request_duration_seconds_count Number of observed requests in duration series.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_http_request_duration_seconds_count counter")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_http_request_duration_seconds_count{method=%q,path=%q,status=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.Count)
		}

		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_http_in_flight_requests In-flight HTTP requests currently served by this app.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_http_in_flight_requests gauge")
		_, _ = fmt.Fprintf(w, "tb_dashboard_http_in_flight_requests %d\n", atomic.LoadInt64(&inFlightRequests))

		metricsMu.Lock()
		sessKeys := make([]sessionOpMetricKey, 0, len(sessionOpSeries))
		for k := range sessionOpSeries {
			sessKeys = append(sessKeys, k)
		}
		sort.Slice(sessKeys, func(i, j int) bool {
			return sessKeys[i].Operation < sessKeys[j].Operation
		})
		sessSnapshot := make([]struct {
			Key    sessionOpMetricKey
			Series sessionOpMetricSeries
		}, 0, len(sessKeys))
		for _, k := range sessKeys {
			sessSnapshot = append(sessSnapshot, struct {
				Key    sessionOpMetricKey
				Series sessionOpMetricSeries
			}{k, *sessionOpSeries[k]})
		}

		exKeys := make([]externalMetricKey, 0, len(externalSeries))
		for k := range externalSeries {
			exKeys = append(exKeys, k)
		}
		sort.Slice(exKeys, func(i, j int) bool {
			if exKeys[i].Target != exKeys[j].Target {
				return exKeys[i].Target < exKeys[j].Target
			}
			return exKeys[i].Operation < exKeys[j].Operation
		})
		exSnapshot := make([]struct {
			Key    externalMetricKey
			Series externalMetricSeries
		}, 0, len(exKeys))
		for _, k := range exKeys {
			exSnapshot = append(exSnapshot, struct {
				Key    externalMetricKey
				Series externalMetricSeries
			}{k, *externalSeries[k]})
		}

		batchKeys := make([]batchLoadMetricKey, 0, len(batchLoadSeries))
		for k := range batchLoadSeries {
			batchKeys = append(batchKeys, k)
		}
		sort.Slice(batchKeys, func(i, j int) bool {
			return batchKeys[i].Status < batchKeys[j].Status
		})
		batchSnapshot := make([]struct {
			Key    batchLoadMetricKey
			Series batchLoadMetricSeries
		}, 0, len(batchKeys))
		for _, k := range batchKeys {
			batchSnapshot = append(batchSnapshot, struct {
				Key    batchLoadMetricKey
				Series batchLoadMetricSeries
			}{k, *batchLoadSeries[k]})
		}
		metricsMu.Unlock()

		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_session_op_duration_seconds_sum Session store operation duration sum in seconds.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_session_op_duration_seconds_sum counter")
		for _, it := range sessSnapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_session_op_duration_seconds_sum{operation=%q} %.9f\n",
				escapeLabel(it.Key.Operation), it.Series.DurationSecondsSum)
		}
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_session_op_duration_seconds_count Session store operation observation count.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_session_op_duration_seconds_count counter")
		for _, it := range sessSnapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_session_op_duration_seconds_count{operation=%q} %d\n",
				escapeLabel(it.Key.Operation), it.Series.Count)
		}
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_session_op_errors_total Session store operation errors.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_session_op_errors_total counter")
		for _, it := range sessSnapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_session_op_errors_total{operation=%q} %d\n",
				escapeLabel(it.Key.Operation), it.Series.Errors)
		}

		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_external_probe_duration_seconds_sum Backend call duration sum in seconds by target/operation.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_external_probe_duration_seconds_sum counter")
		for _, it := range exSnapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_external_probe_duration_seconds_sum{target=%q,operation=%q} %.9f\n",
				escapeLabel(it.Key.Target), escapeLabel(it.Key.Operation), it.Series.DurationSecondsSum)
		}
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_external_probe_duration_seconds_count Backend call observation count by target/operation.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_external_probe_duration_seconds_count counter")
		for _, it := range exSnapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_external_probe_duration_seconds_count{target=%q,operation=%q} %d\n",
				escapeLabel(it.Key.Target), escapeLabel(it.Key.Operation), it.Series.Count)
		}
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_external_probe_errors_total Backend call errors by target/operation.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_external_probe_errors_total counter")
		for _, it := range exSnapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_external_probe_errors_total{target=%q,operation=%q} %d\n",
				escapeLabel(it.Key.Target), escapeLabel(it.Key.Operation), it.Series.Errors)
		}

		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_batch_loads_total Dashboard batch load count by status.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_batch_loads_total counter")
		for _, it := range batchSnapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_batch_loads_total{status=%q} %d\n", escapeLabel(it.Key.Status), it.Series.Count)
		}
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_batch_load_duration_seconds_sum Dashboard batch load duration sum in seconds by status.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_batch_load_duration_seconds_sum counter")
		for _, it := range batchSnapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_batch_load_duration_seconds_sum{status=%q} %.9f\n", escapeLabel(it.Key.Status), it.Series.DurationSecondsSum)
		}
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_batch_load_duration_seconds_count Dashboard batch load duration observation count by status.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_batch_load_duration_seconds_count counter")
		for _, it := range batchSnapshot {
			_, _ = fmt.Fprintf(w, "tb_dashboard_batch_load_duration_seconds_count{status=%q} %d\n", escapeLabel(it.Key.Status), it.Series.Count)
		}

		uptime := time.Now().Unix() - appStartedAtUnix
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_uptime_seconds Process uptime in seconds.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_uptime_seconds gauge")
		_, _ = fmt.Fprintf(w, "tb_dashboard_uptime_seconds %d\n", uptime)

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_runtime_goroutines Number of goroutines.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_runtime_goroutines gauge")
		_, _ = fmt.Fprintf(w, "tb_dashboard_runtime_goroutines %d\n", runtime.NumGoroutine())
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_runtime_memory_alloc_bytes Heap allocation bytes.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_runtime_memory_alloc_bytes gauge")
		_, _ = fmt.Fprintf(w, "tb_dashboard_runtime_memory_alloc_bytes %d\n", ms.Alloc)
		_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_runtime_gc_total Total GC runs since process start.")
		_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_runtime_gc_total counter")
		_, _ = fmt.Fprintf(w, "tb_dashboard_runtime_gc_total %d\n", ms.NumGC)

		if cpuSec, ok := processCPUSeconds(); ok {
			_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_runtime_cpu_seconds_total Total CPU time consumed by this process in seconds.")
			_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_runtime_cpu_seconds_total counter")
			_, _ = fmt.Fprintf(w, "tb_dashboard_runtime_cpu_seconds_total %.6f\n", cpuSec)
			if uptime > 0 {
				cpuPct := (cpuSec / float64(uptime)) * 100.0
				_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_runtime_cpu_percent Average CPU percent of one core since process start.")
				_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_runtime_cpu_percent gauge")
				_, _ = fmt.Fprintf(w, "tb_dashboard_runtime_cpu_percent %.6f\n", cpuPct)
			}
		}
		if io := processIOStats(); io != nil {
			_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_runtime_io_read_bytes_total Bytes read by this process from storage.")
			_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_runtime_io_read_bytes_total counter")
			_, _ = fmt.Fprintf(w, "tb_dashboard_runtime_io_read_bytes_total %d\n", io.ReadBytes)
			_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_runtime_io_write_bytes_total Bytes written by this process to storage.")
			_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_runtime_io_write_bytes_total counter")
			_, _ = fmt.Fprintf(w, "tb_dashboard_runtime_io_write_bytes_total %d\n", io.WriteBytes)
			_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_runtime_io_read_syscalls_total Read syscalls issued by this process.")
			_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_runtime_io_read_syscalls_total counter")
			_, _ = fmt.Fprintf(w, "tb_dashboard_runtime_io_read_syscalls_total %d\n", io.SysReadCalls)
			_, _ = fmt.Fprintln(w, "# HELP tb_dashboard_runtime_io_write_syscalls_total Write syscalls issued by this process.")
			_, _ = fmt.Fprintln(w, "# TYPE tb_dashboard_runtime_io_write_syscalls_total counter")
			_, _ = fmt.Fprintf(w, "tb_dashboard_runtime_io_write_syscalls_total %d\n", io.SysWriteCalls)
		}
	})
}

func appMetricsSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type endpointRow struct {
			Method  string  `json:"method"`
			Path    string  `json:"path"`
			Status  string  `json:"status"`
			Count   uint64  `json:"count"`
			AvgMS   float64 `json:"avg_ms"`
			TotalMS float64 `json:"total_ms"`
		}
		type probeRow struct {
			Target    string  `json:"target"`
			Operation string  `json:"operation"`
			Count     uint64  `json:"count"`
			Errors    uint64  `json:"errors"`
			AvgMS     float64 `json:"avg_ms"`
		}

		metricsMu.Lock()
		httpRows := make([]endpointRow, 0, len(httpSeries))
		for k, s := range httpSeries {
			avg := 0.0
			if s.Count > 0 {
				avg = (s.DurationSecondsSum / float64(s.Count)) * 1000.0
			}
			httpRows = append(httpRows, endpointRow{
				Method:  k.Method,
				Path:    k.Path,
				Status:  k.Status,
				Count:   s.Count,
				AvgMS:   avg,
				TotalMS: s.DurationSecondsSum * 1000.0,
			})
		}

		probeRows := make([]probeRow, 0, len(externalSeries))
		totalProbeErrors := uint64(0)
		for k, s := range externalSeries {
			avg := 0.0
			if s.Count > 0 {
				avg = (s.DurationSecondsSum / float64(s.Count)) * 1000.0
			}
			probeRows = append(probeRows, probeRow{
				Target:    k.Target,
				Operation: k.Operation,
				Count:     s.Count,
				Errors:    s.Errors,
				AvgMS:     avg,
			})
			totalProbeErrors += s.Errors
		}

		sessionErrors := uint64(0)
		for _, s := range sessionOpSeries {
			sessionErrors += s.Errors
		}
		metricsMu.Unlock()

		sort.Slice(httpRows, func(i, j int) bool { return httpRows[i].AvgMS > httpRows[j].AvgMS })
		sort.Slice(probeRows, func(i, j int) bool { return probeRows[i].AvgMS > probeRows[j].AvgMS })

		topHTTP := httpRows
		if len(topHTTP) > 5 {
			topHTTP = topHTTP[:5]
		}
		topProbes := probeRows
		if len(topProbes) > 5 {
			topProbes = topProbes[:5]
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
			},
			"data": map[string]any{
				"top_http_slowest_avg_ms":    topHTTP,
				"top_backend_slowest_avg_ms": topProbes,
				"errors": map[string]any{
					"session_op_total":     sessionErrors,
					"external_probe_total": totalProbeErrors,
				},
			},
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func observabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&inFlightRequests, 1)
		defer atomic.AddInt64(&inFlightRequests, -1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := normalizeMetricPath(r.URL.Path)
		sec := time.Since(start).Seconds()
		recordHTTPMetric(r.Method, route, rec.status, sec)
	})
}

func normalizeMetricPath(path string) string {
	switch {
	case path == "/":
		return "/"
	case path == "/metrics":
		return "/metrics"
	case strings.HasPrefix(path, "/api/v1/reports/") && len(path) > len("/api/v1/reports/"):
		return "/api/v1/reports/{id}"
	default:
		return path
	}
}

type httpMetricKey struct {
	Method string
	Path   string
	Status string
}

type httpMetricSeries struct {
	Count              uint64
	DurationSecondsSum float64
}

type sessionOpMetricKey struct {
	Operation string
}

type sessionOpMetricSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

type externalMetricKey struct {
	Target    string
	Operation string
}

type externalMetricSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

type batchLoadMetricKey struct {
	Status string
}

type batchLoadMetricSeries struct {
	Count              uint64
	DurationSecondsSum float64
}

func recordHTTPMetric(method, path string, status int, durationSeconds float64) {
	key := httpMetricKey{
		Method: method,
		Path:   path,
		Status: fmt.Sprintf("%d", status),
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := httpSeries[key]
	if !ok {
		row = &httpMetricSeries{}
		httpSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
}

func recordSessionOp(operation string, durationSeconds float64, err error) {
	if operation == "" {
		return
	}
	key := sessionOpMetricKey{Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := sessionOpSeries[key]
	if !ok {
		row = &sessionOpMetricSeries{}
		sessionOpSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

func recordExternalProbe(target, operation string, durationSeconds float64, err error) {
	if target == "" || operation == "" {
		return
	}
	key := externalMetricKey{Target: target, Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := externalSeries[key]
	if !ok {
		row = &externalMetricSeries{}
		externalSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

func recordBatchLoad(status string, durationSeconds float64) {
	status = strings.TrimSpace(strings.ToLower(status))
	if status == "" {
		status = "unknown"
	}
	key := batchLoadMetricKey{Status: status}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := batchLoadSeries[key]
	if !ok {
		row = &batchLoadMetricSeries{}
		batchLoadSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func processCPUSeconds() (float64, bool) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	user := float64(ru.Utime.Sec) + (float64(ru.Utime.Usec) / 1_000_000.0)
	sys := float64(ru.Stime.Sec) + (float64(ru.Stime.Usec) / 1_000_000.0)
	return user + sys, true
}

type ioStats struct {
	ReadBytes     uint64
	WriteBytes    uint64
	SysReadCalls  uint64
	SysWriteCalls uint64
}

func processIOStats() *ioStats {
	b, err := os.ReadFile("/proc/self/io")
	if err != nil {
		return nil
	}
	out := &ioStats{}
	lines := strings.Split(string(b), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		valRaw := strings.TrimSpace(parts[1])
		v, err := strconv.ParseUint(valRaw, 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "read_bytes":
			out.ReadBytes = v
		case "write_bytes":
			out.WriteBytes = v
		case "syscr":
			out.SysReadCalls = v
		case "syscw":
			out.SysWriteCalls = v
		}
	}
	return out
}
