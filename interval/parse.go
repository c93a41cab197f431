package interval

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse parses a single interval. Accepted forms are "1-3", "1,3", "1 3" and "[1,3]".
// Negative bounds work with every form, e.g. "-5--1" or "[-5, -1]".
func Parse(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}

	start, end, err := split(s)
	if err != nil {
		return Interval{}, errors.Wrapf(err, "parsing %q", s)
	}

	var i Interval

	i.Start, err = strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return Interval{}, errors.Wrap(err, "parsing start")
	}

	i.End, err = strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return Interval{}, errors.Wrap(err, "parsing end")
	}

	if !i.Valid() {
		return Interval{}, errors.Wrapf(ErrMalformed, "start %d after end %d", i.Start, i.End)
	}

	return i, nil
}

func split(s string) (string, string, error) {
	if idx := strings.IndexByte(s, ','); idx >= 0 {
		return s[:idx], s[idx+1:], nil
	}

	if fields := strings.Fields(s); len(fields) == 2 {
		return fields[0], fields[1], nil
	}

	// Skip a leading sign when looking for the separating dash
	if len(s) > 1 {
		if idx := strings.IndexByte(s[1:], '-'); idx >= 0 {
			return s[:idx+1], s[idx+2:], nil
		}
	}

	return "", "", errors.New("no separator found")
}
