// Package notify tells administrators when a poll has been completed.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/emilythestrangee/ballotbox/backend/internal/config"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
	"github.com/emilythestrangee/ballotbox/backend/internal/models"
)

// maxBody is Twilio's limit, in characters, for a single message body.
const maxBody = 1600

type Notifier interface {
	PollCompleted(ctx context.Context, poll *models.Poll, results *models.Results) error
}

// New returns an SMS notifier when Twilio is configured and a no-op one otherwise.
func New(cfg config.Config, log logrus.FieldLogger) Notifier {
	entry := logging.Module(log, "notify")
	if !cfg.TwilioEnabled() {
		entry.Info("twilio not configured, completion notices disabled")
		return Noop{}
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &SMS{
		sender: client.Api,
		from:   cfg.TwilioFrom,
		to:     cfg.AdminPhones,
		log:    entry,
	}
}

type Noop struct{}

func (Noop) PollCompleted(context.Context, *models.Poll, *models.Results) error { return nil }

type messageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMS sends one text per admin phone.
type SMS struct {
	sender messageSender
	from   string
	to     []string
	log    *logrus.Entry
}

func (s *SMS) PollCompleted(ctx context.Context, poll *models.Poll, results *models.Results) error {
	body := Summary(poll, results)

	var failed []string
	for _, to := range s.to {
		if err := ctx.Err(); err != nil {
			return err
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(s.from)
		params.SetBody(body)

		resp, err := s.sender.CreateMessage(params)
		if err != nil {
			s.log.WithError(err).WithField("to", to).Warn("sms send failed")
			failed = append(failed, to)
			continue
		}

		entry := s.log.WithFields(logrus.Fields{"to": to, "poll_id": poll.ID})
		if resp != nil && resp.Sid != nil {
			entry = entry.WithField("sid", *resp.Sid)
		}
		entry.Info("completion notice sent")
	}

	if len(failed) > 0 {
		return errors.Errorf("sms failed for %d of %d recipients", len(failed), len(s.to))
	}
	return nil
}

// Summary renders the message text for a completed poll.
func Summary(poll *models.Poll, results *models.Results) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Poll %q completed with %d votes.", poll.Title, results.TotalVotes)

	for _, c := range results.Candidates {
		name := c.Name
		if c.Deleted || name == "" {
			name = "(removed candidate)"
		}
		fmt.Fprintf(&b, " %s: %d (%.1f%%).", name, c.Votes, c.Percentage)
	}

	out := []rune(b.String())
	if len(out) > maxBody {
		return string(out[:maxBody-3]) + "..."
	}
	return string(out)
}
