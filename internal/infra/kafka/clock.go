package kafka

import "time"

// CurrentTimeMillis returns wall-clock milliseconds since the Unix epoch. It
// is the default record key and timestamp source.
func CurrentTimeMillis() int64 {
	return time.Now().UnixMilli()
}
