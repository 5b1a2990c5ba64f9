package gjinverse

// Option configures Run.
type Option func(*options)

type options struct {
	tolerance float64
	roundHook func(rank, col, n int)
}

// WithTolerance makes the pivot owner fail with ErrSingular when the
// absolute pivot value is not greater than eps. A zero eps (the default)
// disables the check and lets Inf/NaN propagate into the result.
//
// Only the coordinator's tolerance matters: it is sent to every worker
// together with its rows.
func WithTolerance(eps float64) Option {
	return func(o *options) {
		o.tolerance = eps
	}
}

// WithRoundHook registers fn to be called after each elimination round.
// In a local group fn is called from every rank's goroutine.
func WithRoundHook(fn func(rank, col, n int)) Option {
	return func(o *options) {
		o.roundHook = fn
	}
}
