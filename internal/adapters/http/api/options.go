package api

// Option configures the API server.
type Option func(*options)

type options struct {
	maxTopLimit     int
	maxAroundWindow int
	adminToken      string
}

func newOptions(opts ...Option) options {
	o := options{
		maxTopLimit:     defaultMaxTopLimit,
		maxAroundWindow: defaultMaxAroundWindow,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

const (
	defaultMaxTopLimit     = 100
	defaultMaxAroundWindow = 50
)

// WithMaxTopLimit caps the limit accepted by top queries.
func WithMaxTopLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTopLimit = n
		}
	}
}

// WithMaxAroundWindow caps the window accepted by around queries.
func WithMaxAroundWindow(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxAroundWindow = n
		}
	}
}

// WithAdminToken sets the bearer token guarding leaderboard administration.
// An empty token leaves the admin endpoints disabled.
func WithAdminToken(token string) Option {
	return func(o *options) {
		o.adminToken = token
	}
}
