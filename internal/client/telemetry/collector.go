// Package telemetry samples OS and application metrics into a Heartbeat
// snapshot. Sampling goes through a swappable SystemSampler struct so
// tests can substitute fakes.
package telemetry

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/storewatch/sentinel/internal/heartbeat"
)

// SystemSampler holds swappable func fields for each OS metric read, so
// tests can substitute fakes without touching the real OS.
type SystemSampler struct {
	CPUPercent    func(interval time.Duration, percpu bool) ([]float64, error)
	VirtualMemory func() (*mem.VirtualMemoryStat, error)
	DiskUsage     func(path string) (*disk.UsageStat, error)
	HostUptime    func() (uint64, error)
}

func defaultSampler() SystemSampler {
	return SystemSampler{
		CPUPercent:    cpu.Percent,
		VirtualMemory: mem.VirtualMemory,
		DiskUsage:     disk.Usage,
		HostUptime:    host.Uptime,
	}
}

// ApplicationCounters is supplied by the embedding application (detection
// pipeline, camera manager) so the collector can fill application_stats
// and camera_status without owning that domain itself.
// The connection counters (consecutive_failures, last_successful_connection)
// are owned by the shipper, not supplied here.
type ApplicationCounters struct {
	LastDetectionTime    *time.Time
	TotalDetectionsToday int64
	AppVersion           string
	RuntimeVersion       string
	Cameras              []heartbeat.CameraHealth
}

// Collector produces Heartbeat snapshots on demand. It never fails the
// caller: on inability to read a metric, the field is left zero-valued.
type Collector struct {
	storeID   string
	storeName string
	sampler   SystemSampler

	network *networkProbe
	counters func() ApplicationCounters
}

// NewCollector builds a Collector for the given store identity. counters
// supplies the application-owned fields on each Collect call.
func NewCollector(storeID, storeName string, probeURLs []string, probeInterval time.Duration, counters func() ApplicationCounters) *Collector {
	return &Collector{
		storeID:   storeID,
		storeName: storeName,
		sampler:   defaultSampler(),
		network:   newNetworkProbe(probeURLs, probeInterval),
		counters:  counters,
	}
}

// SetSampler substitutes the OS metric fetchers, for tests.
func (c *Collector) SetSampler(s SystemSampler) {
	c.sampler = s
}

// Collect builds one Heartbeat snapshot with IsStartup set to isStartup.
// The shipper passes true on every heartbeat until one has been delivered
// since process start.
func (c *Collector) Collect(isStartup bool) heartbeat.Heartbeat {
	now := time.Now()
	hb := heartbeat.Heartbeat{
		StoreID:   c.storeID,
		StoreName: c.storeName,
		Timestamp: now,
		IsStartup: isStartup,
		LocationInfo: heartbeat.LocationInfo{
			Timezone:  localTimezone(now),
			LocalTime: now.Format(time.RFC3339),
		},
	}

	if percents, err := c.sampler.CPUPercent(0, false); err == nil && len(percents) > 0 {
		hb.SystemStats.CPUPercent = percents[0]
	}
	if v, err := c.sampler.VirtualMemory(); err == nil {
		hb.SystemStats.MemPercent = v.UsedPercent
		hb.SystemStats.MemAvailGB = float64(v.Available) / (1 << 30)
	}
	if d, err := c.sampler.DiskUsage("/"); err == nil {
		hb.SystemStats.DiskFreeGB = float64(d.Free) / (1 << 30)
		hb.SystemStats.DiskUsePercent = d.UsedPercent
	}
	if u, err := c.sampler.HostUptime(); err == nil {
		hb.SystemStats.UptimeHours = float64(u) / 3600
	}
	if proc, err := processMemoryMB(); err == nil {
		hb.SystemStats.ProcessMemMB = proc
	}

	sample, connected := c.network.sample(now)
	hb.SystemStats.NetworkConnected = connected
	hb.SystemStats.NetworkSpeedMbps = sample
	hb.NetworkInfo.CurrentSpeedMbps = sample
	hb.NetworkInfo.RecentSamples = c.network.recent()

	if c.counters != nil {
		ac := c.counters()
		hb.AppStats = heartbeat.ApplicationStats{
			LastDetectionTime:    ac.LastDetectionTime,
			TotalDetectionsToday: ac.TotalDetectionsToday,
			AppVersion:           ac.AppVersion,
			RuntimeVersion:       ac.RuntimeVersion,
		}
		hb.CameraStatus.Cameras = ac.Cameras
		hb.CameraStatus.TotalCameras = len(ac.Cameras)
		for _, cam := range ac.Cameras {
			if cam.Active {
				hb.CameraStatus.ActiveCameras++
			}
		}
	}

	return hb
}

func processMemoryMB() (float64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / (1 << 20), nil
}

func localTimezone(t time.Time) string {
	name, _ := t.Zone()
	return name
}
