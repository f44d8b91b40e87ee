package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo is one reading of the host. Byte counts are raw bytes, usage
// values are percentages rounded to two decimals.
type SystemInfo struct {
	Hostname    string    `json:"hostname"`
	OS          string    `json:"os"`
	Platform    string    `json:"platform"`
	CPUUsage    float64   `json:"cpu_usage"`
	MemoryTotal int64     `json:"memory_total"`
	MemoryUsed  int64     `json:"memory_used"`
	MemoryUsage float64   `json:"memory_usage"`
	DiskTotal   int64     `json:"disk_total"`
	DiskUsed    int64     `json:"disk_used"`
	DiskUsage   float64   `json:"disk_usage"`
	CollectedAt time.Time `json:"collected_at"`
}

// Converts bytes to gigabytes
func BytesToGB(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024 * 1024)
}

// Summary renders the reading as one human-readable line.
func (i *SystemInfo) Summary() string {
	return fmt.Sprintf("%s (%s/%s) cpu %.2f%% | mem %.2f/%.2f GB (%.2f%%) | disk %.2f/%.2f GB (%.2f%%)",
		i.Hostname, i.OS, i.Platform, i.CPUUsage,
		BytesToGB(i.MemoryUsed), BytesToGB(i.MemoryTotal), i.MemoryUsage,
		BytesToGB(i.DiskUsed), BytesToGB(i.DiskTotal), i.DiskUsage)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// toInt64 clamps gopsutil's unsigned counters into the signed range the
// server stores.
func toInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// windowsSystemDrive is tried when the default "/" mount cannot be read.
const windowsSystemDrive = "C:"

// Collector gathers SystemInfo with gopsutil.
type Collector struct {
	// DiskPath is the mount point whose usage is reported.
	DiskPath string
	// CPUSampleInterval is how long CPU usage is measured over. Zero compares
	// against the previous call.
	CPUSampleInterval time.Duration

	diskUsage func(ctx context.Context, path string) (*disk.UsageStat, error)
}

func NewCollector(diskPath string) *Collector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Collector{DiskPath: diskPath, CPUSampleInterval: time.Second, diskUsage: disk.UsageWithContext}
}

// usage reads DiskPath. When DiskPath is the default root and it fails, the
// Windows system drive is tried instead.
func (c *Collector) usage(ctx context.Context) (*disk.UsageStat, error) {
	read := c.diskUsage
	if read == nil {
		read = disk.UsageWithContext
	}

	u, err := read(ctx, c.DiskPath)
	if err == nil || c.DiskPath != "/" {
		return u, err
	}
	if fallback, ferr := read(ctx, windowsSystemDrive); ferr == nil {
		return fallback, nil
	}
	return nil, err
}

func (c *Collector) Collect(ctx context.Context) (*SystemInfo, error) {
	info := &SystemInfo{}

	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting system info: %w", err)
	}
	info.Hostname = hostInfo.Hostname
	info.OS = hostInfo.OS
	info.Platform = hostInfo.Platform

	percent, err := cpu.PercentWithContext(ctx, c.CPUSampleInterval, false) // false -> overall percentage
	if err != nil {
		return nil, fmt.Errorf("error getting CPU usage: %w", err)
	}
	if len(percent) > 0 {
		info.CPUUsage = round2(percent[0])
	}

	memoryInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting memory info: %w", err)
	}
	info.MemoryTotal = toInt64(memoryInfo.Total)
	info.MemoryUsed = toInt64(memoryInfo.Used)
	info.MemoryUsage = round2(memoryInfo.UsedPercent)

	usage, err := c.usage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting disk usage for %s: %w", c.DiskPath, err)
	}
	info.DiskTotal = toInt64(usage.Total)
	info.DiskUsed = toInt64(usage.Used)
	info.DiskUsage = round2(usage.UsedPercent)

	info.CollectedAt = time.Now().UTC()
	return info, nil
}
