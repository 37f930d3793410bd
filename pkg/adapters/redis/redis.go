// Package redis provides a task tracker backed by Redis hashes and an event
// sink backed by a Redis stream.
package redis

import (
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "flowspec:"

// Option configures the Redis adapters.
type Option func(*options)

type options struct {
	prefix string
	maxLen int64
}

// WithPrefix sets the key prefix. Defaults to DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithMaxLen caps the event stream length (approximate trimming). Zero keeps everything.
func WithMaxLen(n int64) Option {
	return func(o *options) {
		o.maxLen = n
	}
}

func apply(opts []Option) options {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewClient connects to addr. The connection is lazy; errors surface on first use.
func NewClient(addr string) *backend.Client {
	return backend.NewClient(&backend.Options{Addr: addr})
}
