package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var sample = Event{
	AppointmentID:  "appt-1",
	SalonID:        "salon-1",
	ProfessionalID: "pro-1",
	ClientID:       "client-1",
	ServiceID:      "svc-1",
	Date:           model.Date{Year: 2030, Month: 3, Day: 4},
	Start:          600,
	End:            630,
	OccurredAt:     time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC),
}

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func TestKafkaNotifierPublishesReservedEvent(t *testing.T) {
	w := &captureWriter{}
	n := NewKafkaNotifier(w, "")
	if err := n.Notify(context.Background(), sample); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if msg.Topic != EventTypeReserved || string(msg.Key) != "pro-1" {
		t.Fatalf("unexpected topic/key %q/%q", msg.Topic, msg.Key)
	}
	if kafkax.HeaderValue(msg.Headers, "event_type") != EventTypeReserved || kafkax.HeaderValue(msg.Headers, "event_id") == "" {
		t.Fatalf("missing event headers: %+v", msg.Headers)
	}
	var body map[string]any
	if err := json.Unmarshal(msg.Value, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body["start_time"] != "10:00" || body["end_time"] != "10:30" || body["date"] != "2030-03-04" {
		t.Fatalf("unexpected payload %v", body)
	}
}

func TestKafkaNotifierWrapsWriteError(t *testing.T) {
	boom := errors.New("leader not available")
	n := NewKafkaNotifier(&captureWriter{err: boom}, "custom.topic")
	if err := n.Notify(context.Background(), sample); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
}

type fakeDirectory struct {
	client model.Client
}

func (d fakeDirectory) Salon(context.Context, string) (model.Salon, error) {
	return model.Salon{ID: "salon-1", Name: "Studio Bela"}, nil
}

func (d fakeDirectory) Client(context.Context, string) (model.Client, error) {
	return d.client, nil
}

type fakeTwilio struct {
	params *twilioApi.CreateMessageParams
}

func (f *fakeTwilio) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestWhatsAppNotifierSendsConfirmation(t *testing.T) {
	api := &fakeTwilio{}
	n := NewWhatsAppNotifier(api, fakeDirectory{client: model.Client{ID: "client-1", Name: "Ana", Phone: "(11) 98765-4321"}}, WhatsAppConfig{From: "+14155238886"})

	if err := n.Notify(context.Background(), sample); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if api.params == nil {
		t.Fatal("no message sent")
	}
	if *api.params.To != "whatsapp:+5511987654321" {
		t.Fatalf("to = %q", *api.params.To)
	}
	if *api.params.From != "whatsapp:+14155238886" {
		t.Fatalf("from = %q", *api.params.From)
	}
	want := "Hi Ana, your appointment on 2030-03-04 at 10:00 at Studio Bela is booked."
	if *api.params.Body != want {
		t.Fatalf("body = %q", *api.params.Body)
	}
}

func TestWhatsAppNotifierRequiresPhone(t *testing.T) {
	n := NewWhatsAppNotifier(&fakeTwilio{}, fakeDirectory{client: model.Client{ID: "client-1"}}, WhatsAppConfig{From: "+1"})
	if err := n.Notify(context.Background(), sample); !errors.Is(err, ErrNoPhone) {
		t.Fatalf("expected ErrNoPhone, got %v", err)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"11987654321":       "+5511987654321",
		"5511987654321":     "+5511987654321",
		"+1 (555) 123-4567": "+15551234567",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in, "55")
		if err != nil || got != want {
			t.Fatalf("NormalizePhone(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizePhone("n/a", "55"); !errors.Is(err, ErrNoPhone) {
		t.Fatalf("expected ErrNoPhone, got %v", err)
	}
}

type countingObserver struct {
	mu     sync.Mutex
	errors map[string]int
	ok     map[string]int
}

func (o *countingObserver) ObserveNotification(channel string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.errors[channel]++
		return
	}
	o.ok[channel]++
}

type notifierFunc func(context.Context, Event) error

func (f notifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

func TestDispatcherDeliversAfterCallerCancels(t *testing.T) {
	obs := &countingObserver{errors: map[string]int{}, ok: map[string]int{}}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	d := NewDispatcher(logger, DispatcherConfig{Observer: obs},
		Target{Channel: "slow", Notifier: notifierFunc(func(ctx context.Context, _ Event) error {
			<-release
			return ctx.Err()
		})},
		Target{Channel: "broken", Notifier: notifierFunc(func(context.Context, Event) error {
			return errors.New("provider down")
		})},
	)

	d.Dispatch(ctx, sample)
	cancel()
	close(release)
	d.Close()

	if obs.ok["slow"] != 1 {
		t.Fatalf("slow target should succeed despite caller cancel: %+v", obs)
	}
	if obs.errors["broken"] != 1 {
		t.Fatalf("broken target should be counted: %+v", obs)
	}
}
