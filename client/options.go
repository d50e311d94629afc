package client

import "time"

// Options configures the coordinator client.
type Options func(*options)

type options struct {
	retryCount       int
	retryWaitTime    time.Duration
	retryMaxWaitTime time.Duration
	requestTimeout   time.Duration
}

func newClientOptions() *options {
	return &options{
		retryCount:       4,
		retryWaitTime:    250 * time.Millisecond,
		retryMaxWaitTime: 2 * time.Second,
		requestTimeout:   15 * time.Second,
	}
}

// RetryCount sets how many times a failed request is retried.
func RetryCount(count int) Options {
	return func(conf *options) {
		conf.retryCount = count
	}
}

// RetryWaitTime sets the initial wait between retries.
func RetryWaitTime(duration time.Duration) Options {
	return func(conf *options) {
		conf.retryWaitTime = duration
	}
}

// RetryMaxWaitTime sets the maximum wait between retries.
func RetryMaxWaitTime(duration time.Duration) Options {
	return func(conf *options) {
		conf.retryMaxWaitTime = duration
	}
}

// RequestTimeout bounds a single request including retries.
func RequestTimeout(duration time.Duration) Options {
	return func(conf *options) {
		conf.requestTimeout = duration
	}
}
