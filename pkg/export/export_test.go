package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellage/core/battery"
	"github.com/kilianp07/cellage/core/results"
)

var t0 = time.Unix(1665593100, 0).UTC()

func samples() []battery.Sample {
	return []battery.Sample{
		{Time: t0, Voltage: 3.7, Current: 0, Power: 0, TempCell: 25, TempAmbient: 25, SoC: 0.5},
		{Time: t0.Add(5 * time.Second), Voltage: 3.65, Current: -3, Power: -10.95, TempCell: 25.1, TempAmbient: 25, SoC: 0.4958},
	}
}

func records() []results.Record {
	return []results.Record{
		{RunID: "a", Condition: "CAL 25°C 50%", AgeType: "calendar", Temp: 25, SoCMin: 50, SoCMax: 50,
			IChg: 1, IDischg: -1, Profile: -1, Index: 1, Time: t0, CapRemaining: 3.05,
			Aging: battery.AgingState{QSEI: 0.01}},
		{RunID: "b", Condition: "PRF 10°C 10-90% +1A full", AgeType: "profile", Temp: 10, SoCMin: 10, SoCMax: 90,
			IChg: 1, IDischg: -1, Profile: 0, Index: 2, Time: t0.Add(time.Hour), CapRemaining: 2.9,
			Aging: battery.AgingState{EDischg: 12.5}},
	}
}

func TestWriteTraceCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTraceCSV(&buf, samples()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, TraceHeader, rows[0])
	assert.Equal(t, []string{"1665593105", "3.65", "-3", "-10.95", "25.1", "25", "0.4958"}, rows[2])
}

func TestWriteTraceJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTraceJSON(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())

	buf.Reset()
	require.NoError(t, WriteTraceJSON(&buf, samples()))
	var got []battery.Sample
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.True(t, got[1].Time.Equal(t0.Add(5*time.Second)))
}

func TestWriteResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, records()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ResultsHeader, rows[0])

	col := func(row []string, name string) string {
		for i, h := range ResultsHeader {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}
	assert.Equal(t, "2022-10-12T16:45:00Z", col(rows[1], "time"))
	assert.Equal(t, "0", col(rows[1], "age_type"))
	assert.Equal(t, "", col(rows[1], "profile"))
	assert.Equal(t, "0.01", col(rows[1], "q_sei"))
	assert.Equal(t, "2", col(rows[2], "age_type"))
	assert.Equal(t, "0", col(rows[2], "profile"))
	assert.Equal(t, "12.5", col(rows[2], "E_dischg"))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "out", "results.json")
	require.NoError(t, SaveResults(path, records()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []results.Record
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got, 2)

	path = filepath.Join(dir, "trace.csv")
	require.NoError(t, SaveTrace(path, samples()))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "time,voltage,current")

	assert.ErrorContains(t, SaveTrace(filepath.Join(dir, "trace.xlsx"), nil), "unsupported extension")
}
