// Package router dispatches inbound MQTT messages to per-topic handlers.
//
// Payloads are decoded as JSON when they parse; anything else reaches the
// handler as its original text. Topics are matched exactly, with a single
// optional global handler as the fallback.
//
// Two constructors exist because the SDK supports two scheduling modes:
//
//	r := router.NewThreaded(logger, m)    // transport delivers on its own goroutines
//	r := router.NewCooperative(logger, m) // host loop pumps messages itself
package router
