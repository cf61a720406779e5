package benchmark

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/robvanmieghem/gorambench/compute"
)

// Report is the outcome of a successful run
type Report struct {
	Config          Config             `json:"config"`
	Device          compute.DeviceInfo `json:"device"`
	Elapsed         time.Duration      `json:"elapsed_ns"`
	ElapsedSeconds  float64            `json:"elapsed_seconds"`
	TotalBytes      uint64             `json:"total_bytes"`
	ThroughputMiBps float64            `json:"throughput_mib_per_sec"`
	Checksum        uint64             `json:"checksum"`
	Timestamp       time.Time          `json:"timestamp"`
}

// TotalBytes is the number of source bytes a run reads: one byte per lane per kernel iteration per launch
func TotalBytes(cfg Config) uint64 {
	return uint64(cfg.Iterations) * uint64(cfg.BatchSize) * uint64(cfg.KernelIterations)
}

// NewReport derives the bandwidth of a run that took elapsed.
// A non positive elapsed time is a MeasurementFailure.
func NewReport(cfg Config, elapsed time.Duration, checksum uint64) (*Report, error) {
	if elapsed <= 0 {
		return nil, newError(MeasurementFailure, "measure elapsed time", fmt.Errorf("elapsed time %v is not positive", elapsed))
	}
	r := &Report{
		Config:         cfg,
		Elapsed:        elapsed,
		ElapsedSeconds: elapsed.Seconds(),
		TotalBytes:     TotalBytes(cfg),
		Checksum:       checksum,
		Timestamp:      time.Now(),
	}
	r.ThroughputMiBps = float64(r.TotalBytes) / r.ElapsedSeconds / (1024 * 1024)
	return r, nil
}

//Print writes the human readable report
func (r *Report) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "time_taken = %f \ntotal_bytes = %d\nmemory random byte read speed = %f MB/s\nchecksum=%d\n",
		r.ElapsedSeconds, r.TotalBytes, r.ThroughputMiBps, r.Checksum)
	return err
}

//WriteJSON writes the report as a single indented json document
func (r *Report) WriteJSON(w io.Writer) error {
	if r == nil {
		return errors.New("nil report")
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}
