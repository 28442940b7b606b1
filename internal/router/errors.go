package router

import "errors"

// ErrInvalidTopic is returned when registering a handler for an empty topic.
var ErrInvalidTopic = errors.New("router: topic cannot be empty")
