package abstract

import (
	"fmt"
	"time"

	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
)

type StreamStatus string

const (
	Pending       StreamStatus = "PENDING"
	Fetching      StreamStatus = "FETCHING"
	Checkpointing StreamStatus = "CHECKPOINTING"
	Done          StreamStatus = "DONE"
	Failed        StreamStatus = "FAILED"
)

var transitions = map[StreamStatus][]StreamStatus{
	Pending:       {Fetching, Failed},
	Fetching:      {Checkpointing, Done, Failed},
	Checkpointing: {Fetching, Done, Failed},
}

// StreamOutcome is the record of one stream's run
type StreamOutcome struct {
	Stream   string        `json:"stream"`
	Status   StreamStatus  `json:"status"`
	Pages    int           `json:"pages"`
	Records  int64         `json:"records"`
	Bookmark any           `json:"bookmark,omitempty"` // persisted form
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`

	started time.Time
}

func newOutcome(stream string) *StreamOutcome {
	return &StreamOutcome{Stream: stream, Status: Pending}
}

func (o *StreamOutcome) transition(to StreamStatus) error {
	for _, allowed := range transitions[o.Status] {
		if allowed == to {
			if o.Status == Pending {
				o.started = time.Now()
			}
			logger.Debugf("stream[%s]: %s -> %s", o.Stream, o.Status, to)
			o.Status = to
			if to == Done || to == Failed {
				o.Duration = time.Since(o.started)
			}
			return nil
		}
	}
	return fmt.Errorf("stream[%s]: invalid transition %s -> %s", o.Stream, o.Status, to)
}

// fail moves the outcome to FAILED and wraps the cause as a StreamFailure
func (o *StreamOutcome) fail(cause error) error {
	failure := &types.StreamFailure{Stream: o.Stream, Err: cause}
	o.Err = failure
	if o.started.IsZero() {
		o.started = time.Now()
	}
	logger.Debugf("stream[%s]: %s -> %s", o.Stream, o.Status, Failed)
	o.Status = Failed
	o.Duration = time.Since(o.started)
	return failure
}

// Summary is the result of a sync run, one outcome per stream in processing order
type Summary struct {
	RunID    string           `json:"run_id"`
	Outcomes []*StreamOutcome `json:"streams"`
	Duration time.Duration    `json:"duration"`
}

func (s *Summary) Outcome(stream string) *StreamOutcome {
	for _, outcome := range s.Outcomes {
		if outcome.Stream == stream {
			return outcome
		}
	}
	return nil
}

func (s *Summary) Failed() []*StreamOutcome {
	var failed []*StreamOutcome
	for _, outcome := range s.Outcomes {
		if outcome.Status == Failed {
			failed = append(failed, outcome)
		}
	}
	return failed
}

func (s *Summary) Records() int64 {
	var total int64
	for _, outcome := range s.Outcomes {
		total += outcome.Records
	}
	return total
}

// Log writes one line per stream
func (s *Summary) Log() {
	for _, o := range s.Outcomes {
		bookmark := utils.Ternary(o.Bookmark == nil, "-", fmt.Sprintf("%v", o.Bookmark)).(string)
		if o.Err != nil {
			logger.Errorf("stream[%s] %s after %s: pages[%d] records[%d] bookmark[%s]: %s", o.Stream, o.Status, o.Duration, o.Pages, o.Records, bookmark, o.Err)
			continue
		}
		logger.Infof("stream[%s] %s in %s: pages[%d] records[%d] bookmark[%s]", o.Stream, o.Status, o.Duration, o.Pages, o.Records, bookmark)
	}
	logger.Infof("run[%s] finished in %s: %d streams, %d records, %d failed", s.RunID, s.Duration, len(s.Outcomes), s.Records(), len(s.Failed()))
}
