// Package status reports optimization session progress to the operator. It
// stands in for the planning console's script status dialog: the driver plans
// an ordered step list up front and advances through it as phases complete.
package status

import (
	"fmt"

	"go.uber.org/zap"
)

// ZapSink writes planned steps and progress transitions to the application
// log.
type ZapSink struct {
	logger *zap.Logger
	steps  []string
	index  int
}

// NewZapSink returns a sink that logs all status traffic through logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger, index: -1}
}

// Plan records the ordered step list and resets the step cursor.
func (s *ZapSink) Plan(steps []string) {
	s.steps = append([]string(nil), steps...)
	s.index = -1
	s.logger.Info(fmt.Sprintf("planned %d optimization steps", len(steps)),
		zap.String("op", "status.Plan"),
		zap.Strings("steps", steps),
	)
}

// Advance moves to the next planned step.
func (s *ZapSink) Advance(text string) {
	s.index++
	s.logger.Info(text,
		zap.String("op", "status.Advance"),
		zap.Int("step", s.index+1),
		zap.Int("planned", len(s.steps)),
	)
}

// Update replaces the text of the current step.
func (s *ZapSink) Update(text string) {
	s.logger.Info(text,
		zap.String("op", "status.Update"),
		zap.Int("step", s.index+1),
	)
}

// Prompt logs the prompt text and continues. Real operator interaction
// belongs to the planning console; a headless run cannot block on input.
func (s *ZapSink) Prompt(text string) {
	s.logger.Warn(text, zap.String("op", "status.Prompt"))
}

// Finish marks the session complete with a closing message.
func (s *ZapSink) Finish(text string) {
	s.logger.Info(text, zap.String("op", "status.Finish"))
}

// Close tears the sink down without a closing message.
func (s *ZapSink) Close() {
	s.logger.Debug("status closed", zap.String("op", "status.Close"))
}

// NopSink discards all status traffic.
type NopSink struct{}

func (NopSink) Plan([]string)  {}
func (NopSink) Advance(string) {}
func (NopSink) Update(string)  {}
func (NopSink) Prompt(string)  {}
func (NopSink) Finish(string)  {}
func (NopSink) Close()         {}

// RecordingSink captures every status call in order for test assertions.
type RecordingSink struct {
	Steps    []string
	Advances []string
	Updates  []string
	Prompts  []string
	Finished []string
	Closed   bool
}

func (r *RecordingSink) Plan(steps []string) {
	r.Steps = append([]string(nil), steps...)
}

func (r *RecordingSink) Advance(text string) {
	r.Advances = append(r.Advances, text)
}

func (r *RecordingSink) Update(text string) {
	r.Updates = append(r.Updates, text)
}

func (r *RecordingSink) Prompt(text string) {
	r.Prompts = append(r.Prompts, text)
}

func (r *RecordingSink) Finish(text string) {
	r.Finished = append(r.Finished, text)
}

func (r *RecordingSink) Close() {
	r.Closed = true
}
