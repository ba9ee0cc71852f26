package services

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

var (
	// OperationsTotal counts dispatched operations by outcome (ok or error kind).
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citymap_operations_total",
			Help: "Dispatched engine operations",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "citymap_operation_duration_seconds",
			Help:    "Time spent in engine operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(OperationsTotal, OperationDuration)
}

func observeOperation(op Operation, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	OperationsTotal.WithLabelValues(string(op), outcome).Inc()
	OperationDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

type HostSample struct {
	CapturedAt        time.Time `json:"capturedAt"`
	ProcessRSSBytes   int64     `json:"processRssBytes"`
	SystemMemoryTotal int64     `json:"systemMemoryTotalBytes"`
	SystemMemoryUsed  int64     `json:"systemMemoryUsedBytes"`
	DiskTotalBytes    int64     `json:"diskTotalBytes"`
	DiskUsedBytes     int64     `json:"diskUsedBytes"`
	ProcessCpuLoad    float64   `json:"processCpuLoad"`
	SystemCpuLoad     float64   `json:"systemCpuLoad"`
}

// CaptureHostSample reads process and host usage. diskPath should point at
// the photo storage volume.
func CaptureHostSample(diskPath string) HostSample {
	sample := HostSample{CapturedAt: time.Now().UTC()}
	if memStat, err := mem.VirtualMemory(); err == nil {
		sample.SystemMemoryTotal = int64(memStat.Total)
		sample.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	diskStat, err := disk.Usage(diskPath)
	if err != nil {
		diskStat, err = disk.Usage("/")
	}
	if err == nil {
		sample.DiskTotalBytes = int64(diskStat.Total)
		sample.DiskUsedBytes = int64(diskStat.Used)
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil && rss != nil {
			sample.ProcessRSSBytes = int64(rss.RSS)
		}
		if cpuPerc, err := proc.CPUPercent(); err == nil {
			sample.ProcessCpuLoad = cpuPerc / 100.0
		}
	}
	if sysCPU, err := cpu.Percent(0, false); err == nil && len(sysCPU) > 0 {
		sample.SystemCpuLoad = sysCPU[0] / 100.0
	}
	return sample
}

func (s HostSample) Event() Event {
	return Event{
		Type: EventHostSample,
		At:   s.CapturedAt,
		Data: map[string]interface{}{
			"processRssBytes":        s.ProcessRSSBytes,
			"systemMemoryUsedBytes":  s.SystemMemoryUsed,
			"systemMemoryTotalBytes": s.SystemMemoryTotal,
			"diskUsedBytes":          s.DiskUsedBytes,
			"diskTotalBytes":         s.DiskTotalBytes,
			"processCpuLoad":         s.ProcessCpuLoad,
			"systemCpuLoad":          s.SystemCpuLoad,
		},
	}
}
