package scanner

import (
	"time"

	"github.com/djherbis/times"
)

type fileTimes struct {
	mtime float64
	atime float64
	ctime *float64
	birth *float64
}

// statTimes collects the file's timestamps as epoch seconds. Change time and
// birth time stay nil where the platform does not report them.
func statTimes(path string, follow bool) (fileTimes, error) {
	var ts times.Timespec
	var err error
	if follow {
		ts, err = times.Stat(path)
	} else {
		ts, err = times.Lstat(path)
	}
	if err != nil {
		return fileTimes{}, err
	}

	result := fileTimes{
		mtime: epochSeconds(ts.ModTime()),
		atime: epochSeconds(ts.AccessTime()),
	}
	if ts.HasChangeTime() {
		ct := epochSeconds(ts.ChangeTime())
		result.ctime = &ct
	}
	if ts.HasBirthTime() {
		bt := epochSeconds(ts.BirthTime())
		result.birth = &bt
	}
	return result, nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
