// consts.go: constant values used in configuration
package conf

// RotationType defines the log rotation strategy.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)
