package util

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

func ReadIntFromFile(path string) (value int, err error) {
	text, err := ReadTextFromFile(path)
	if err != nil {
		return -1, err
	}
	value, err = strconv.Atoi(text)
	return value, err
}

// ReadTextFromFile reads the whole file, trimming surrounding whitespace.
// An empty file is an error.
func ReadTextFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if len(text) <= 0 {
		return "", fmt.Errorf("file is empty: %s", path)
	}
	return text, nil
}

// WriteFileAtomic replaces the content of path without ever exposing a partially written file
func WriteFileAtomic(path string, data []byte) error {
	evaluatedPath, err := filepath.EvalSymlinks(path)
	if len(evaluatedPath) > 0 && err == nil {
		path = evaluatedPath
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// FindFilesMatchingGlob returns all paths matching any of the given patterns,
// trying them in order and stopping at the first pattern that yields results.
func FindFilesMatchingGlob(patterns ...string) []string {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) <= 0 {
			continue
		}
		sort.Strings(matches)
		return matches
	}
	return nil
}
