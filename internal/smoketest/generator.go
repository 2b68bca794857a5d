package smoketest

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/tes/internal/domain/registration"
	"github.com/okian/tes/pkg/logger"
)

var (
	ticketTypes = []registration.TicketType{
		registration.TicketStandard, registration.TicketVIP, registration.TicketEarlyBird,
	}
	diets = []registration.DietaryPreference{
		registration.DietNone, registration.DietVegetarian, registration.DietVegan, registration.DietNonVeg,
	}
	firstNames = []string{"Asha", "Ravi", "Meera", "Kabir", "Ishita", "Arjun", "Zoya", "Vikram"}
	companies  = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Stark"}
	titles     = []string{"CTO", "Founder", "Engineer", "Designer", "Investor", "Student"}
)

// randomIndex returns a uniform index in [0, n) using crypto/rand.
func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func pick[T any](xs []T) T {
	return xs[randomIndex(len(xs))]
}

func randomPhone() string {
	b := make([]byte, 10)
	for i := range b {
		b[i] = byte('0' + randomIndex(10))
	}
	return string(b)
}

// generateDrafts builds config.Registrations drafts. Invalid and duplicate
// drafts are placed deterministically so the expected totals are known.
func generateDrafts(ctx context.Context, config *Config, stats *Stats) []Draft {
	logger.Get().Info(ctx, "generating registration drafts", logger.Int("count", config.Registrations))

	drafts := make([]Draft, config.Registrations)
	form := registration.NewForm()
	for i := range drafts {
		form.Reset()
		fill(form, map[string]any{
			registration.FieldFirstName:          pick(firstNames),
			registration.FieldLastName:           "Smoke",
			registration.FieldEmail:              "smoke-" + uuid.NewString() + "@example.com",
			registration.FieldPhone:              randomPhone(),
			registration.FieldCompany:            pick(companies),
			registration.FieldJobTitle:           pick(titles),
			registration.FieldTicketType:         string(pick(ticketTypes)),
			registration.FieldDietaryPreferences: string(pick(diets)),
			registration.FieldAgreeTerms:         true,
		})
		expect := OutcomeAccepted

		n := i + 1
		switch {
		case config.InvalidEvery > 0 && n%config.InvalidEvery == 0:
			fill(form, map[string]any{
				registration.FieldPhone:      strconv.Itoa(n % 1000),
				registration.FieldAgreeTerms: false,
			})
			expect = OutcomeInvalid
		case config.DuplicateEvery > 0 && n%config.DuplicateEvery == 0 && i > 0:
			if src := drafts[i-1]; src.Expect == OutcomeAccepted {
				fill(form, map[string]any{registration.FieldEmail: src.Email})
				expect = OutcomeDuplicate
			}
		}

		// The local verdict must agree with what the draft was built for.
		if _, ok := form.Submit(); ok != (expect != OutcomeInvalid) {
			logger.Get().Warn(ctx, "generated draft validates unexpectedly", logger.Int("index", i))
		}
		drafts[i] = Draft{Draft: form.Draft(), Expect: expect}
	}

	stats.Generated = len(drafts)
	return drafts
}

// fill sets every value on f. Field names and types are fixed above, so
// an error here is a programming mistake.
func fill(f *registration.Form, values map[string]any) {
	for field, v := range values {
		if err := f.Set(field, v); err != nil {
			panic("smoketest: " + err.Error())
		}
	}
}

// expected counts drafts per expected outcome.
func expected(drafts []Draft) map[string]int {
	out := map[string]int{}
	for _, d := range drafts {
		out[d.Expect]++
	}
	return out
}
