package archive

import "time"

func timeFromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(sec, 0).UTC()
}
