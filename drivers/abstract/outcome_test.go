package abstract

import (
	"errors"
	"testing"

	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeTransitions(t *testing.T) {
	outcome := newOutcome("assets")
	assert.Equal(t, Pending, outcome.Status)

	assert.Error(t, outcome.transition(Done))
	assert.Error(t, outcome.transition(Checkpointing))

	require.NoError(t, outcome.transition(Fetching))
	require.NoError(t, outcome.transition(Checkpointing))
	require.NoError(t, outcome.transition(Fetching))
	require.NoError(t, outcome.transition(Done))

	assert.Error(t, outcome.transition(Fetching), "DONE is terminal")
}

func TestOutcomeFail(t *testing.T) {
	outcome := newOutcome("assets")
	require.NoError(t, outcome.transition(Fetching))

	cause := errors.New("boom")
	err := outcome.fail(cause)

	var failure *types.StreamFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "assets", failure.Stream)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Failed, outcome.Status)
	assert.Equal(t, err, outcome.Err)
}

func TestSummary(t *testing.T) {
	summary := &Summary{RunID: "run"}
	done := newOutcome("assets")
	done.Status = Done
	done.Records = 3
	failed := newOutcome("funds")
	_ = failed.fail(errors.New("boom"))
	failed.Records = 1
	summary.Outcomes = append(summary.Outcomes, done, failed)

	assert.EqualValues(t, 4, summary.Records())
	assert.Equal(t, []*StreamOutcome{failed}, summary.Failed())
	assert.Equal(t, done, summary.Outcome("assets"))
	assert.Nil(t, summary.Outcome("missing"))
	summary.Log()
}
