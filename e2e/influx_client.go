package e2e

import (
	"context"
	"fmt"
	"sort"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// studyReader reads back what the influx sink wrote for a study.
type studyReader struct {
	org    string
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

func newStudyReader(url, org, bucket, token string) *studyReader {
	c := influxdb2.NewClient(url, token)
	return &studyReader{org: org, bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// ready fails unless the server reports a passing health check.
func (r *studyReader) ready(ctx context.Context) error {
	h, err := r.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if h.Status != "pass" {
		return fmt.Errorf("health: status %s", h.Status)
	}
	return nil
}

// ensureBucket creates the bucket when the container setup did not.
func (r *studyReader) ensureBucket(ctx context.Context) error {
	buckets := r.client.BucketsAPI()
	if b, err := buckets.FindBucketByName(ctx, r.bucket); err == nil && b != nil {
		return nil
	}
	org, err := r.client.OrganizationsAPI().FindOrganizationByName(ctx, r.org)
	if err != nil {
		return fmt.Errorf("find org %s: %w", r.org, err)
	}
	if _, err := buckets.CreateBucketWithName(ctx, org, r.bucket); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (r *studyReader) flux(measurement, field string, tags map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `from(bucket:%q) |> range(start: 2000-01-01T00:00:00Z)`, r.bucket)
	fmt.Fprintf(&b, ` |> filter(fn: (r) => r._measurement == %q and r._field == %q)`, measurement, field)
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ` |> filter(fn: (r) => r[%q] == %q)`, k, tags[k])
	}
	return b.String()
}

// count returns the number of points of field in measurement matching tags.
func (r *studyReader) count(ctx context.Context, measurement, field string, tags map[string]string) (int, error) {
	res, err := r.query.Query(ctx, r.flux(measurement, field, tags))
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", measurement, err)
	}
	defer res.Close()
	n := 0
	for res.Next() {
		n++
	}
	return n, res.Err()
}

// capacityFade returns the remaining capacity of a run, oldest check-up first.
func (r *studyReader) capacityFade(ctx context.Context, runID string) ([]float64, error) {
	q := r.flux("checkup", "cap_remaining", map[string]string{"run_id": runID}) + ` |> sort(columns: ["_time"])`
	res, err := r.query.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query fade %s: %w", runID, err)
	}
	defer res.Close()
	var out []float64
	for res.Next() {
		if v, ok := res.Record().Value().(float64); ok {
			out = append(out, v)
		}
	}
	return out, res.Err()
}

func (r *studyReader) close() { r.client.Close() }
