package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/models"
)

const dashboardText = `
Acme Steel Works | Continuous Emission Monitoring

Stack 1
PM
12.4 mg/Nm3
25-08-2026 10:45 Time
SO2
41.0 mg/Nm3
25-08-2026 10:45 Time

Effluent Outlet
pH
---
25-08-2026 10:40 Time
BOD
8.2 mg/l
25-08-2026 10:40 Time
Refresh

Contact Us
Privacy Policy
`

func TestParseDashboard(t *testing.T) {
	readings := parseDashboard(dashboardText, "---")
	require.Len(t, readings, 2)

	stack := readings["Stack 1"]
	require.Len(t, stack, 2)
	assert.Equal(t, models.Reading{
		Status: models.StatusOperational,
		Value:  "12.4 mg/Nm3",
		Time:   "25-08-2026 10:45",
	}, stack["PM"])
	assert.Equal(t, "41.0 mg/Nm3", stack["SO2"].Value)

	outlet := readings["Effluent Outlet"]
	require.Len(t, outlet, 2)
	assert.Equal(t, models.StatusNotOperational, outlet["pH"].Status)
	assert.Equal(t, "---", outlet["pH"].Value)
	assert.Equal(t, models.StatusOperational, outlet["BOD"].Status)
}

func TestParseDashboardDropsChrome(t *testing.T) {
	text := `
Home
About
Dashboards

Acme Steel Works
`
	assert.Empty(t, parseDashboard(text, "---"))
}

func TestParseDashboardMergesRepeatedStations(t *testing.T) {
	text := `
Stack 1
PM
12.4
10:45 Time

Stack 1
SO2
41.0
10:45 Time
`
	readings := parseDashboard(text, "---")
	require.Len(t, readings, 1)
	assert.Len(t, readings["Stack 1"], 2)
}

func TestParseBlockIgnoresIncompleteTriple(t *testing.T) {
	station, rows := parseBlock([]string{"Stack 1", "PM", "12.4", "10:45 Time", "SO2", "41.0"}, "---")
	assert.Equal(t, "Stack 1", station)
	require.Len(t, rows, 1)
	assert.Equal(t, "12.4", rows["PM"].Value)
}

func TestParseBlockTooShort(t *testing.T) {
	_, rows := parseBlock([]string{"Stack 1", "PM", "12.4"}, "---")
	assert.Empty(t, rows)
}

func TestScrapeRejectsEmptyURL(t *testing.T) {
	s := NewScraper(nil, common.TelemetryConfig{}, arbor.NewLogger())

	_, err := s.Scrape(context.Background(), models.LiveLink{CompanyName: "Acme"})

	require.Error(t, err)
	assert.Equal(t, common.FaultPermanentInput, common.KindOf(err))
}
