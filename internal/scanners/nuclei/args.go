package nuclei

import (
	"strconv"
	"strings"
	"time"
)

type Options struct {
	RateLimit      int
	RequestTimeout time.Duration
	Retries        int
	Tags           []string
}

// Args builds the fixed, conservative nuclei command line for one target.
func Args(target string, opts Options) []string {
	timeout := int(opts.RequestTimeout / time.Second)
	if timeout < 1 {
		timeout = 1
	}

	args := []string{
		"-u", target,
		"-jsonl",
		"-silent",
		"-no-color",
		"-disable-update-check",
		"-rate-limit", strconv.Itoa(opts.RateLimit),
		"-timeout", strconv.Itoa(timeout),
		"-retries", strconv.Itoa(opts.Retries),
	}
	if len(opts.Tags) > 0 {
		args = append(args, "-tags", strings.Join(opts.Tags, ","))
	}
	return args
}
