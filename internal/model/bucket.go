package model

import (
	"fmt"
	"time"
)

// Hour buckets are ISO-8601 timestamps truncated to the hour, e.g.
// "2024-05-01T09Z". They segment the raw-event storage path.
const hourBucketLayout = "2006-01-02T15Z"

func HourBucket(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(hourBucketLayout)
}

func ParseHourBucket(bucket string) (time.Time, error) {
	t, err := time.Parse(hourBucketLayout, bucket)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing hour bucket %q: %w", bucket, err)
	}
	return t, nil
}

// HourBuckets enumerates every hour bucket from start to end inclusive.
// Both bounds are hour-bucket strings.
func HourBuckets(start, end string) ([]string, error) {
	from, err := ParseHourBucket(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseHourBucket(end)
	if err != nil {
		return nil, err
	}

	var buckets []string
	for t := from; !t.After(to); t = t.Add(time.Hour) {
		buckets = append(buckets, t.Format(hourBucketLayout))
	}
	return buckets, nil
}
