package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

func TestSamplePoint(t *testing.T) {
	collected := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	device := models.Device{Hostname: "pc1", OS: "windows"}
	sample := models.MetricSample{
		ClientID:    "11111111-1111-4111-8111-111111111111",
		CPUUsage:    12.5,
		MemoryTotal: 16 << 30,
		MemoryUsage: 40,
		DiskUsage:   70,
		CollectedAt: collected,
	}

	p := samplePoint(device, sample)

	assert.Equal(t, sampleMeasurement, p.Name())
	assert.True(t, p.Time().Equal(collected))

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{
		"client_id": sample.ClientID,
		"hostname":  "pc1",
		"os":        "windows",
	}, tags)

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 12.5, fields["cpu_usage"])
	assert.Equal(t, int64(16<<30), fields["memory_total"])
	assert.Len(t, fields, 7)
}
