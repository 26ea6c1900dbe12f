package confirmation

// ValidationOptions builds the two-button set for a VALIDATION_FAILED
// confirmation. defaultReject picks which button is pre-selected when an
// operator does not answer in time.
func ValidationOptions(defaultReject bool) []Option {
	return []Option{
		{Action: ActionReject, Label: "Reject Signal", IsDefault: defaultReject},
		{Action: ActionExecuteAnyway, Label: "Execute Anyway", IsDefault: !defaultReject},
	}
}

// OrderFailureOptions builds the three-button set for an ORDER_FAILED
// confirmation, defaulting to CANCEL.
func OrderFailureOptions() []Option {
	return []Option{
		{Action: ActionRetry, Label: "Retry"},
		{Action: ActionCancel, Label: "Cancel", IsDefault: true},
		{Action: ActionManual, Label: "Handle Manually"},
	}
}

// ExitFailureOptions builds the three-button set for an EXIT_FAILED
// confirmation, defaulting to MANUAL: an exit that failed to place
// leaves a live position, so the safe default is to stop and hand it to
// an operator rather than silently cancel or blindly retry.
func ExitFailureOptions() []Option {
	return []Option{
		{Action: ActionRetry, Label: "Retry"},
		{Action: ActionManual, Label: "Handle Manually", IsDefault: true},
		{Action: ActionCancel, Label: "Cancel"},
	}
}

// ZeroLotsOptions builds the two-button set for a ZERO_LOTS
// confirmation, defaulting to SKIP.
func ZeroLotsOptions() []Option {
	return []Option{
		{Action: ActionForceOneLot, Label: "Force One Lot"},
		{Action: ActionSkip, Label: "Skip Signal", IsDefault: true},
	}
}
