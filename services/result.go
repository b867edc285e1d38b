package services

// Result carries the outcome of a business operation back to the caller.
// Engines return it alongside any domain object so handlers can map outcomes
// to responses without inspecting errors for control flow.
type Result struct {
	Success bool
	Message string
}

func Ok(message string) Result {
	return Result{Success: true, Message: message}
}

func Fail(message string) Result {
	return Result{Success: false, Message: message}
}
