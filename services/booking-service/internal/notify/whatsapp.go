package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// DefaultCountryCode is prefixed to numbers stored without one.
const DefaultCountryCode = "55"

var ErrNoPhone = errors.New("client has no phone number")

type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type Directory interface {
	Salon(ctx context.Context, salonID string) (model.Salon, error)
	Client(ctx context.Context, clientID string) (model.Client, error)
}

type WhatsAppConfig struct {
	// From is the sender number, with or without the "whatsapp:" prefix.
	From        string
	CountryCode string
}

// WhatsAppNotifier sends the client a booking confirmation through Twilio's WhatsApp channel.
type WhatsAppNotifier struct {
	api         MessageCreator
	directory   Directory
	from        string
	countryCode string
}

func NewWhatsAppNotifier(api MessageCreator, directory Directory, cfg WhatsAppConfig) *WhatsAppNotifier {
	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}
	return &WhatsAppNotifier{
		api:         api,
		directory:   directory,
		from:        whatsappAddress(cfg.From),
		countryCode: cfg.CountryCode,
	}
}

// NewTwilioAPI returns the REST messages API for the given account.
func NewTwilioAPI(accountSID, authToken string) MessageCreator {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return client.Api
}

func (n *WhatsAppNotifier) Notify(ctx context.Context, ev Event) error {
	client, err := n.directory.Client(ctx, ev.ClientID)
	if err != nil {
		return fmt.Errorf("whatsapp: load client: %w", err)
	}
	to, err := NormalizePhone(client.Phone, n.countryCode)
	if err != nil {
		return fmt.Errorf("whatsapp: client %s: %w", client.ID, err)
	}
	salonName := ""
	if salon, err := n.directory.Salon(ctx, ev.SalonID); err == nil {
		salonName = salon.Name
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(whatsappAddress(to))
	params.SetFrom(n.from)
	params.SetBody(ConfirmationText(client.Name, salonName, ev))

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("whatsapp: send to %s: %w", to, err)
	}
	if resp == nil || resp.Sid == nil {
		return errors.New("whatsapp: provider returned no message sid")
	}
	return nil
}

func ConfirmationText(clientName, salonName string, ev Event) string {
	var b strings.Builder
	if clientName != "" {
		fmt.Fprintf(&b, "Hi %s, ", clientName)
	} else {
		b.WriteString("Hi, ")
	}
	fmt.Fprintf(&b, "your appointment on %s at %s", ev.Date, ev.Start)
	if salonName != "" {
		fmt.Fprintf(&b, " at %s", salonName)
	}
	b.WriteString(" is booked.")
	return b.String()
}

// NormalizePhone strips everything but digits and prefixes countryCode when missing, returning E.164.
func NormalizePhone(raw, countryCode string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return "", ErrNoPhone
	}
	if !strings.HasPrefix(strings.TrimSpace(raw), "+") && !strings.HasPrefix(d, countryCode) {
		d = countryCode + d
	}
	return "+" + d, nil
}

func whatsappAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
