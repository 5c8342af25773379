package mongo

import "time"

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func timestampPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
