package main

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"drill/filtered"
	"drill/ntuple"
)

const maxTokenSize = 1024 * 1024

// scanTokens reads text from in and calls fn for every token. Tokens are whitespace
// separated words, or overlapping byte windows of width ngram if ngram is positive.
// With normalize set, the text is lowercased and punctuation and digits are collapsed
// before tokenizing.
func scanTokens(in io.Reader, normalize bool, ngram int, fn func(string) error) (int, error) {
	if normalize {
		in = filtered.NewReader(in)
	}

	if ngram > 0 {
		return scanNGrams(in, ngram, fn)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTokenSize)
	scanner.Split(bufio.ScanWords)

	tokens := 0
	for scanner.Scan() {
		err := fn(scanner.Text())
		if err != nil {
			return tokens, err
		}

		tokens++
	}

	err := scanner.Err()
	if err != nil {
		return tokens, errors.Wrap(err, "scanning words")
	}

	return tokens, nil
}

func scanNGrams(in io.Reader, n int, fn func(string) error) (int, error) {
	r := ntuple.New(in)
	buf := make([]byte, n)

	tokens := 0
	for {
		err := r.Next(buf)
		if errors.Is(err, io.EOF) {
			return tokens, nil
		}
		if err != nil {
			return tokens, errors.Wrap(err, "reading n-grams")
		}

		err = fn(string(buf))
		if err != nil {
			return tokens, err
		}

		tokens++
	}
}
