package benchmark

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuiteRun(t *testing.T) {
	suite := NewSuite()
	calls := 0
	suite.Add("ok", func(context.Context) (int, error) {
		calls++
		time.Sleep(time.Millisecond)
		return 2, nil
	})
	suite.Add("fails", func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	assert.Equal(t, 2, suite.Len())

	res := suite.Run(context.Background(), "ok", 5)
	require.NoError(t, res.Err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, res.Iterations)
	assert.Equal(t, 2, res.Detections)
	assert.GreaterOrEqual(t, res.PerOp(), time.Millisecond)
	assert.Contains(t, res.String(), "5 iterations")

	res = suite.Run(context.Background(), "fails", 3)
	require.Error(t, res.Err)
	assert.Equal(t, 0, res.Iterations)
	assert.Contains(t, res.String(), "ERROR - boom")

	res = suite.Run(context.Background(), "missing", 1)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "not found")

	res = suite.Run(context.Background(), "ok", 0)
	assert.Error(t, res.Err)
}

func TestSuiteRunAll(t *testing.T) {
	suite := NewSuite()
	for _, name := range []string{"a", "b", "c"} {
		suite.Add(name, func(context.Context) (int, error) { return 1, nil })
	}

	results := suite.RunAll(context.Background(), 2)
	require.Len(t, results, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, results[i].Name)
		assert.Equal(t, 2, results[i].Iterations)
	}
	assert.Equal(t, results, suite.Results())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, suite.RunAll(ctx, 1))
}

func TestResultZeroIterations(t *testing.T) {
	var r Result
	assert.Zero(t, r.PerOp())
	assert.Zero(t, r.AllocsPerOp())
	assert.Zero(t, r.BytesPerOp())
}

func TestTimer(t *testing.T) {
	timer := NewTimer("span")
	time.Sleep(time.Millisecond)
	d := timer.Stop()
	assert.Equal(t, d, timer.Duration())
	assert.True(t, strings.HasPrefix(timer.String(), "span: "))
}

func TestWriters(t *testing.T) {
	results := []Result{
		{Name: "db/two_lines", Iterations: 4, Duration: 4 * time.Millisecond, Detections: 2},
		{Name: "broken", Err: errors.New("bad map")},
	}

	var text bytes.Buffer
	require.NoError(t, WriteText(&text, results))
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "1ms/op")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "name", rows[0][0])
	assert.Equal(t, []string{"db/two_lines", "4", "1000000", "0", "0", "2", ""}, rows[1])
	assert.Equal(t, "bad map", rows[2][6])
}

func TestDecodeFixtures(t *testing.T) {
	dec, err := detector.NewDBDecoder(detector.DefaultDBConfig())
	require.NoError(t, err)

	suite := NewSuite()
	for _, f := range testutil.StandardMapFixtures() {
		m := f.Map()
		suite.Add("db/"+f.Name, func(context.Context) (int, error) {
			dets, err := dec.Decode(m, m.Width, m.Height)
			return len(dets), err
		})
	}

	for i, res := range suite.RunAll(context.Background(), 3) {
		f := testutil.StandardMapFixtures()[i]
		require.NoError(t, res.Err, f.Name)
		assert.Equal(t, f.Detections, res.Detections, f.Name)
	}
}

func BenchmarkDBDecode(b *testing.B) {
	dec, err := detector.NewDBDecoder(detector.DefaultDBConfig())
	require.NoError(b, err)
	f, _ := testutil.MapFixtureByName("two_lines")
	m := f.Map()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := dec.Decode(m, m.Width, m.Height); err != nil {
			b.Fatal(err)
		}
	}
}
