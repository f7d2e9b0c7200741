package scoring

import "time"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithActivityWindowDays sets the recent-activity window for performance stats.
func WithActivityWindowDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.windowDays = days
		}
	}
}

// WithWeights sets the maximum points each component contributes.
// Non-positive values keep the defaults.
func WithWeights(completion, activity, comment float64) Option {
	return func(e *Engine) {
		if completion > 0 && activity > 0 && comment > 0 {
			e.completionWeight = completion
			e.activityWeight = activity
			e.commentWeight = comment
		}
	}
}

// WithCaps sets the activity and comment counts that earn full points.
func WithCaps(activityCap, commentCap int) Option {
	return func(e *Engine) {
		if activityCap > 0 && commentCap > 0 {
			e.activityCap = activityCap
			e.commentCap = commentCap
		}
	}
}
