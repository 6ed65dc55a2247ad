package notify

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/emilythestrangee/ballotbox/backend/internal/config"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

type fakeSender struct {
	sent []*twilioApi.CreateMessageParams
	fail map[string]bool
}

func (f *fakeSender) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	if f.fail[*p.To] {
		return nil, errors.New("unreachable")
	}
	f.sent = append(f.sent, p)
	sid := "SM" + *p.To
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

var (
	poll    = &models.Poll{ID: "p1", Title: "Mayor"}
	results = &models.Results{
		PollID:     "p1",
		TotalVotes: 3,
		Candidates: []models.CandidateResult{
			{CandidateID: "a", Name: "Alice", Votes: 2, Percentage: 66.7},
			{CandidateID: "x", Votes: 1, Percentage: 33.3, Deleted: true},
		},
	}
)

func TestSummary(t *testing.T) {
	assert.Equal(t,
		`Poll "Mayor" completed with 3 votes. Alice: 2 (66.7%). (removed candidate): 1 (33.3%).`,
		Summary(poll, results))

	long := &models.Poll{Title: strings.Repeat("x", 2000)}
	assert.Len(t, Summary(long, &models.Results{}), maxBody)

	accented := Summary(&models.Poll{Title: strings.Repeat("é", 900)}, &models.Results{
		TotalVotes: 1,
		Candidates: []models.CandidateResult{{CandidateID: "c1", Name: strings.Repeat("ç", 900), Votes: 1, Percentage: 100}},
	})
	assert.True(t, utf8.ValidString(accented))
	assert.Equal(t, maxBody, utf8.RuneCountInString(accented))
	assert.True(t, strings.HasSuffix(accented, "..."))
}

func TestSMSPollCompleted(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"+15550002": true}}
	sms := &SMS{
		sender: sender,
		from:   "+15559999",
		to:     []string{"+15550001", "+15550002"},
		log:    logging.Module(logging.Discard(), "notify"),
	}

	err := sms.PollCompleted(context.Background(), poll, results)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+15550001", *sender.sent[0].To)
	assert.Equal(t, "+15559999", *sender.sent[0].From)
	assert.Equal(t, Summary(poll, results), *sender.sent[0].Body)
}

func TestNewWithoutTwilio(t *testing.T) {
	n := New(config.Config{}, logging.Discard())
	assert.IsType(t, Noop{}, n)
	assert.NoError(t, n.PollCompleted(context.Background(), poll, results))

	n = New(config.Config{
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "token",
		TwilioFrom:       "+15559999",
		AdminPhones:      []string{"+15550001"},
	}, logging.Discard())
	assert.IsType(t, &SMS{}, n)
}
