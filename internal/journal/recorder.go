package journal

import (
	"context"
	"time"
)

// writeTimeout bounds a journal write made on behalf of another operation.
const writeTimeout = 2 * time.Second

// Logger is the logging surface the Recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Recorder adapts a Repository to the hooks used elsewhere in the SDK.
// Journal write errors are logged and never returned: a full disk must not
// break command handling or platform calls.
type Recorder struct {
	repo Repository
	log  Logger
}

// NewRecorder wraps repo. log may be nil.
func NewRecorder(repo Repository, log Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

// RecordCommand journals a received MQTT message.
func (r *Recorder) RecordCommand(topic, payload string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	r.write(ctx, &Entry{Kind: KindCommand, Topic: topic, Detail: payload})
}

// RecordFailure journals a failed platform call.
func (r *Recorder) RecordFailure(ctx context.Context, endpoint string, statusCode int, cause error) {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	r.write(ctx, &Entry{Kind: KindFailure, Endpoint: endpoint, StatusCode: statusCode, Detail: detail})
}

func (r *Recorder) write(ctx context.Context, e *Entry) {
	if err := r.repo.Create(ctx, e); err != nil && r.log != nil {
		r.log.Warn("journal write failed", "kind", e.Kind, "error", err)
	}
}
