package fold

import "time"

// FunctionContext holds the settings functions are evaluated with. It
// carries no data and is safe to copy.
type FunctionContext struct {
	// Timezone is used to interpret dates and timestamps. A nil Timezone is
	// UTC.
	Timezone *time.Location
}

// DefaultFunctionContext returns a FunctionContext in UTC.
func DefaultFunctionContext() FunctionContext {
	return FunctionContext{Timezone: time.UTC}
}

// Location returns the timezone of ctx.
func (ctx FunctionContext) Location() *time.Location {
	if ctx.Timezone == nil {
		return time.UTC
	}
	return ctx.Timezone
}
