// Package hw reports load, memory and temperature of the host pingmon runs on.
package hw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"

	"github.com/nicktill/pingmon/pkg/httpx"
	"github.com/nicktill/pingmon/pkg/logging"
)

const gib = 1 << 30

// Status is the /api/hw payload.
type Status struct {
	// Load is the 5 minute load average as a percentage of all cores.
	Load        float64 `json:"load"`
	MemoryUsed  float64 `json:"memory_used"`  // GiB
	MemoryTotal float64 `json:"memory_total"` // GiB
	Temperature float64 `json:"temperature"`  // °C, 0 when no sensor is found
}

// Source reads raw figures from the system.
type Source interface {
	Load(ctx context.Context) (load5 float64, cores int, err error)
	Memory(ctx context.Context) (used, total uint64, err error)
	Temperatures(ctx context.Context) (map[string]float64, error)
}

// Reporter builds Status values from a Source.
type Reporter struct {
	src    Source
	logger log.Logger
}

// NewReporter returns a Reporter reading the local machine.
func NewReporter(logger log.Logger) *Reporter {
	return NewReporterWithSource(psutilSource{}, logger)
}

// NewReporterWithSource returns a Reporter over src.
func NewReporterWithSource(src Source, logger log.Logger) *Reporter {
	return &Reporter{src: src, logger: logging.OrNop(logger)}
}

// Status collects a snapshot. Figures that cannot be read are left at zero
// and reported in the returned error; the snapshot is still usable.
func (r *Reporter) Status(ctx context.Context) (Status, error) {
	var st Status
	var errs []error

	if load5, cores, err := r.src.Load(ctx); err != nil {
		errs = append(errs, err)
	} else if cores > 0 {
		st.Load = load5 / float64(cores) * 100
	}

	if used, total, err := r.src.Memory(ctx); err != nil {
		errs = append(errs, err)
	} else {
		st.MemoryUsed = float64(used) / gib
		st.MemoryTotal = float64(total) / gib
	}

	if temps, err := r.src.Temperatures(ctx); err != nil {
		errs = append(errs, err)
	} else {
		st.Temperature = pickTemperature(temps)
	}

	return st, errors.Join(errs...)
}

// HandleStatus handles GET /api/hw
func (r *Reporter) HandleStatus(w http.ResponseWriter, req *http.Request) {
	st, err := r.Status(req.Context())
	if err != nil {
		level.Debug(r.logger).Log("msg", "incomplete hardware status", "err", err)
	}
	httpx.RespondJSON(w, http.StatusOK, st)
}

// pickTemperature prefers the first thermal zone, then any CPU package
// sensor, then the hottest reading.
func pickTemperature(temps map[string]float64) float64 {
	if t, ok := temps["thermal_zone0"]; ok {
		return t
	}
	var hottest float64
	for key, t := range temps {
		if strings.Contains(key, "package") || strings.HasPrefix(key, "coretemp") || strings.HasPrefix(key, "cpu") {
			return t
		}
		if t > hottest {
			hottest = t
		}
	}
	return hottest
}

type psutilSource struct{}

func (psutilSource) Load(ctx context.Context) (float64, int, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, 0, err
	}
	return avg.Load5, cores, nil
}

func (psutilSource) Memory(ctx context.Context) (uint64, uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return vm.Used, vm.Total, nil
}

func (psutilSource) Temperatures(ctx context.Context) (map[string]float64, error) {
	stats, err := host.SensorsTemperaturesWithContext(ctx)
	temps := make(map[string]float64, len(stats))
	for _, s := range stats {
		temps[s.SensorKey] = s.Temperature
	}
	// gopsutil returns partial readings alongside warnings
	if len(temps) > 0 {
		return temps, nil
	}
	return temps, err
}
