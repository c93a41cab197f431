package main

import (
	"bufio"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"drill/interval"
	"drill/topk"
)

type jsonEntry struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

type jsonInterval [2]int

// writeEntries writes one "token<TAB>count" line per entry, or a JSON array.
func writeEntries(out io.Writer, entries []topk.Entry[string], asJSON bool) error {
	if asJSON {
		res := make([]jsonEntry, 0, len(entries))
		for _, e := range entries {
			res = append(res, jsonEntry{Token: e.Value, Count: e.Count})
		}

		return writeJSON(out, res)
	}

	w := bufio.NewWriter(out)

	for _, e := range entries {
		_, err := fmt.Fprintf(w, "%s\t%d\n", e.Value, e.Count)
		if err != nil {
			return errors.Wrap(err, "writing output line")
		}
	}

	return errors.Wrap(w.Flush(), "flushing output")
}

// writeIntervals writes one "start<TAB>end" line per interval, or a JSON array of pairs.
func writeIntervals(out io.Writer, intervals []interval.Interval, asJSON bool) error {
	if asJSON {
		res := make([]jsonInterval, 0, len(intervals))
		for _, i := range intervals {
			res = append(res, jsonInterval{i.Start, i.End})
		}

		return writeJSON(out, res)
	}

	w := bufio.NewWriter(out)

	for _, i := range intervals {
		_, err := fmt.Fprintf(w, "%d\t%d\n", i.Start, i.End)
		if err != nil {
			return errors.Wrap(err, "writing output line")
		}
	}

	return errors.Wrap(w.Flush(), "flushing output")
}

func writeJSON(out io.Writer, v interface{}) error {
	err := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out).Encode(v)
	if err != nil {
		return errors.Wrap(err, "encoding result")
	}

	return nil
}
