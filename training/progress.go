package training

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProgressBar provides in-terminal training progress visualization.
type ProgressBar struct {
	description string
	total       int
	current     int
	startTime   time.Time
	width       int
	metrics     map[string]float64
}

// NewProgressBar creates a progress bar spanning total steps.
func NewProgressBar(description string, total int) *ProgressBar {
	return &ProgressBar{
		description: description,
		total:       total,
		startTime:   time.Now(),
		width:       40,
		metrics:     make(map[string]float64),
	}
}

// Update advances the progress bar and refreshes the metric readout.
func (pb *ProgressBar) Update(step int, metrics map[string]float64) {
	pb.current = step
	for k, v := range metrics {
		pb.metrics[k] = v
	}
	pb.render()
}

// Finish completes the progress bar and moves to a new line.
func (pb *ProgressBar) Finish() {
	pb.current = pb.total
	pb.render()
	fmt.Println()
}

func (pb *ProgressBar) render() {
	percentage := float64(pb.current) / float64(pb.total)
	if percentage > 1.0 {
		percentage = 1.0
	}

	filled := int(percentage * float64(pb.width))
	if filled > pb.width {
		filled = pb.width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat(" ", pb.width-filled)

	line := fmt.Sprintf("\r%s: %3.0f%%|%s| %d/%d [%s]",
		pb.description, percentage*100, bar, pb.current, pb.total,
		formatDuration(time.Since(pb.startTime)))

	keys := make([]string, 0, len(pb.metrics))
	for k := range pb.metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := pb.metrics[key]
		if strings.Contains(key, "acc") {
			line += fmt.Sprintf(", %s=%.2f%%", key, value*100)
		} else {
			line += fmt.Sprintf(", %s=%.4f", key, value)
		}
	}

	fmt.Print(line)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d - m*time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}
