package groupme

import (
	"context"
	"encoding/json"
	"fmt"
)

// Bots manages the authenticated user's bots.
type Bots struct {
	session *Session
}

// NewBots creates a bot manager.
func NewBots(s *Session) *Bots {
	return &Bots{session: s}
}

// List returns the user's bots.
func (b *Bots) List(ctx context.Context) ([]*Bot, error) {
	bots, err := get[[]*Bot](ctx, b.session, "bots", nil)
	if err != nil {
		return nil, err
	}
	for _, bot := range *bots {
		bot.bind(b.session)
	}
	return *bots, nil
}

// BotRequest carries the fields for creating a bot.
type BotRequest struct {
	Name           string `json:"name"`
	GroupID        string `json:"group_id"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	CallbackURL    string `json:"callback_url,omitempty"`
	DMNotification bool   `json:"dm_notification,omitempty"`
}

type createBotRequest struct {
	Bot BotRequest `json:"bot"`
}

type createBotResponse struct {
	Bot *Bot `json:"bot"`
}

// Create registers a new bot in a group.
func (b *Bots) Create(ctx context.Context, req BotRequest) (*Bot, error) {
	result, err := post[createBotResponse](ctx, b.session, "bots", createBotRequest{Bot: req})
	if err != nil {
		return nil, err
	}
	if result.Bot == nil {
		return nil, fmt.Errorf("groupme: create bot %q: response carried no bot", req.Name)
	}
	return result.Bot.bind(b.session), nil
}

type botPostRequest struct {
	BotID      string `json:"bot_id"`
	Text       string `json:"text"`
	PictureURL string `json:"picture_url,omitempty"`
}

// Post sends a message to the bot's group as the bot. The endpoint returns
// an empty body on success.
func (b *Bots) Post(ctx context.Context, botID, text, pictureURL string) error {
	_, err := post[json.RawMessage](ctx, b.session, "bots/post", botPostRequest{
		BotID:      botID,
		Text:       text,
		PictureURL: pictureURL,
	})
	return err
}

type botDestroyRequest struct {
	BotID string `json:"bot_id"`
}

// Destroy deletes a bot.
func (b *Bots) Destroy(ctx context.Context, botID string) error {
	_, err := post[json.RawMessage](ctx, b.session, "bots/destroy", botDestroyRequest{BotID: botID})
	return err
}

// botFields are the JSON keys with a typed counterpart on Bot.
var botFields = []string{
	"bot_id", "group_id", "name", "avatar_url", "callback_url", "dm_notification",
}

// Bot posts to a single group under its own name.
type Bot struct {
	BotID          string `json:"bot_id"`
	GroupID        string `json:"group_id"`
	Name           string `json:"name"`
	AvatarURL      string `json:"avatar_url"`
	CallbackURL    string `json:"callback_url"`
	DMNotification bool   `json:"dm_notification"`
	Extra          Fields `json:"-"`

	session *Session
}

// UnmarshalJSON decodes the typed fields and preserves everything else in
// Extra.
func (b *Bot) UnmarshalJSON(data []byte) error {
	type alias Bot
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, botFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*b = Bot(a)
	return nil
}

// bind attaches the session used for follow-up operations.
func (b *Bot) bind(s *Session) *Bot {
	b.session = s
	return b
}

// String implements fmt.Stringer.
func (b *Bot) String() string {
	return fmt.Sprintf("Bot(name=%q)", b.Name)
}

// Post sends a message to the bot's group as the bot.
func (b *Bot) Post(ctx context.Context, text, pictureURL string) error {
	return NewBots(b.session).Post(ctx, b.BotID, text, pictureURL)
}

// Destroy deletes the bot.
func (b *Bot) Destroy(ctx context.Context) error {
	return NewBots(b.session).Destroy(ctx, b.BotID)
}
