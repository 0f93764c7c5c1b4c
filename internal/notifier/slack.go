package notifier

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/slack-go/slack"
)

// SlackNotifier posts events to every channel the bot is a member of.
type SlackNotifier struct {
	Logger *slog.Logger
	SlackSender
	userID string
	lock   sync.Mutex
}

type SlackSender interface {
	PostMessage(string, ...slack.MsgOption) (string, string, error)
	GetConversationsForUser(*slack.GetConversationsForUserParameters) ([]slack.Channel, string, error)
	AuthTest() (*slack.AuthTestResponse, error)
}

var (
	_ Notifier    = &SlackNotifier{}
	_ SlackSender = &slack.Client{}
)

func (s *SlackNotifier) Notify(event Event) {
	channels, err := s.getChannels()
	if err != nil {
		s.Logger.Error("notifier failed to retrieve channels", "err", err)
		return
	}
	for _, channel := range channels {
		s.Logger.Debug("notifying on slack", "channel", channel.Name)
		_, _, err = s.SlackSender.PostMessage(channel.ID, slack.MsgOptionAttachments(slack.Attachment{
			Color: string(event.Severity),
			Title: event.Title,
			Text:  event.Text,
		}))
		if err != nil {
			s.Logger.Error("notifier failed to post message", "channel", channel.Name, "err", err)
		}
	}
}

// getChannels returns the open channels of the bot user. The bot's user ID is looked up once.
func (s *SlackNotifier) getChannels() ([]slack.Channel, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.userID == "" {
		resp, err := s.SlackSender.AuthTest()
		if err != nil {
			return nil, fmt.Errorf("slack auth: %w", err)
		}
		s.userID = resp.UserID
	}

	var channels []slack.Channel
	params := slack.GetConversationsForUserParameters{
		UserID:          s.userID,
		Types:           []string{"public_channel", "private_channel"},
		Limit:           100,
		ExcludeArchived: true,
	}
	for {
		page, next, err := s.SlackSender.GetConversationsForUser(&params)
		if err != nil {
			return nil, fmt.Errorf("slack conversations of %s: %w", s.userID, err)
		}
		channels = append(channels, page...)
		if params.Cursor = next; next == "" {
			return channels, nil
		}
	}
}
