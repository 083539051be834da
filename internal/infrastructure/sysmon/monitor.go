// Package sysmon reports host resource usage and detector availability for
// the system status endpoint.
package sysmon

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

type RAMInfo struct {
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	AvailableGB float64 `json:"available_gb"`
	Percent     float64 `json:"percent"`
}

type HostInfo struct {
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	CPUCount        int    `json:"cpu_count"`
}

type Status struct {
	Health        string   `json:"health"`
	ModelStatus   string   `json:"model_status"`
	ModelEndpoint string   `json:"model_endpoint,omitempty"`
	CPUPercent    float64  `json:"cpu_percent"`
	RAM           RAMInfo  `json:"ram"`
	SystemInfo    HostInfo `json:"system_info"`
}

type Monitor struct {
	mu            sync.RWMutex
	modelStatus   string
	modelEndpoint string
}

func New() *Monitor {
	return &Monitor{modelStatus: "Not Connected"}
}

func (m *Monitor) SetModelStatus(status, endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelStatus = status
	m.modelEndpoint = endpoint
}

// Status gathers a point-in-time snapshot of host resources and derives an
// overall health label from RAM pressure.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	status := Status{
		ModelStatus:   m.modelStatus,
		ModelEndpoint: m.modelEndpoint,
		Health:        "Optimal",
	}
	m.mu.RUnlock()

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		status.CPUPercent = round1(percents[0])
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		const gb = 1 << 30
		status.RAM = RAMInfo{
			TotalGB:     round2(float64(vm.Total) / gb),
			UsedGB:      round2(float64(vm.Used) / gb),
			AvailableGB: round2(float64(vm.Available) / gb),
			Percent:     vm.UsedPercent,
		}
		switch {
		case vm.UsedPercent > 90:
			status.Health = "Critical"
		case vm.UsedPercent > 75:
			status.Health = "Warning"
		}
	}

	if info, err := host.Info(); err == nil {
		status.SystemInfo = HostInfo{
			OS:              info.OS,
			Platform:        info.Platform,
			PlatformVersion: info.PlatformVersion,
		}
	}
	if count, err := cpu.Counts(true); err == nil {
		status.SystemInfo.CPUCount = count
	}

	return status
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
