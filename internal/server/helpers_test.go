package server

import (
	"strconv"
	"time"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
