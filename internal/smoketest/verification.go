package smoketest

import (
	"context"
	"fmt"

	"github.com/okian/tes/pkg/logger"
)

// verifyResults checks every submission got the outcome its draft was built
// for. Throttled submissions are excluded, as are duplicates whose original
// was throttled.
func verifyResults(ctx context.Context, drafts []Draft, outcomes []string, stats *Stats) error {
	if len(drafts) != len(outcomes) {
		return fmt.Errorf("have %d outcomes for %d drafts", len(outcomes), len(drafts))
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d submissions failed", stats.Failed)
	}
	if stats.Mismatched > 0 {
		return fmt.Errorf("%d server error maps differ from local validation", stats.Mismatched)
	}

	throttledEmails := map[string]bool{}
	for i, o := range outcomes {
		if o == OutcomeThrottled {
			throttledEmails[drafts[i].EmailKey()] = true
		}
	}

	mismatches := 0
	for i, d := range drafts {
		got := outcomes[i]
		if got == OutcomeThrottled {
			continue
		}
		want := d.Expect
		if want == OutcomeDuplicate && throttledEmails[d.EmailKey()] {
			want = OutcomeAccepted
		}
		if got != want {
			mismatches++
			logger.Get().Warn(ctx, "unexpected outcome",
				logger.Int("index", i),
				logger.String("want", want),
				logger.String("got", got))
		}
	}
	if mismatches > 0 {
		return fmt.Errorf("%d submissions had an unexpected outcome", mismatches)
	}

	if stats.Throttled > 0 {
		logger.Get().Warn(ctx, "some submissions were rate limited; raise TES_RATE_LIMIT for a full run",
			logger.Int("throttled", stats.Throttled))
	}
	logger.Get().Info(ctx, "result verification completed", logger.Any("expected", expected(drafts)))
	return nil
}
