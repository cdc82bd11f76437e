package pipeline

import (
	"os"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
	"github.com/shirou/gopsutil/v3/process"
)

// processUsage samples the resident memory and CPU share of this process.
// Zero values are returned when the platform does not expose them.
func processUsage() (uint64, float64) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0
	}

	var rss uint64
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		rss = mem.RSS
	}

	cpu, err := proc.CPUPercent()
	if err != nil {
		cpu = 0
	}
	return rss, cpu
}

func pipelineStats(camera string, detection, capture bool, lastSeq uint64, startTime time.Time) model.PipelineStats {
	rss, cpu := processUsage()
	return model.PipelineStats{
		Session:    lgr.Session,
		Camera:     camera,
		Detection:  detection,
		Capture:    capture,
		LastSeq:    lastSeq,
		RSSBytes:   rss,
		CPUPercent: cpu,
		Uptime:     int64(time.Since(startTime).Seconds()),
		Timestamp:  time.Now().Unix(),
	}
}
