package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Helpers below fall back to the default when the variable is unset or does
// not parse.

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		}
		return d
	}
	return b
}

func envInt(k string, d int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return d
	}
	return n
}

func envDur(k string, d time.Duration) time.Duration {
	dur, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return d
	}
	return dur
}

// envList splits a comma separated variable, dropping blanks.
func envList(k string, d []string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return d
	}
	return out
}
