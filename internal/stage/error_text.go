package stage

import "strings"

func sanitizeErrorMessage(msg string) string {
	s := strings.Join(strings.Fields(msg), " ")
	if s == "" {
		return "error"
	}
	return s
}

// recordError appends a sanitized envelope error for stage.
func recordError(env *Envelope, stage string, err error) {
	env.Errors = append(env.Errors, Error{Stage: stage, Message: sanitizeErrorMessage(err.Error())})
}
