package util

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrInvalidPage = errors.New("invalid page parameter")
	ErrInvalidSize = errors.New("invalid size parameter")
)

// ParsePage reads raw page and size query values. Missing values fall back to
// page 1 and defSize; range checks are left to the query itself.
func ParsePage(rawPage, rawSize string, defSize int) (page, size int, err error) {
	page, err = parseIntDefault(rawPage, 1)
	if err != nil {
		return 0, 0, ErrInvalidPage
	}
	size, err = parseIntDefault(rawSize, defSize)
	if err != nil {
		return 0, 0, ErrInvalidSize
	}
	return page, size, nil
}

func Offset(page, size int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * size
}

func parseIntDefault(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
