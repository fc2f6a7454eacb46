package availability_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
)

// 2030-03-04 is a Monday.
var monday = model.Date{Year: 2030, Month: 3, Day: 4}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func mins(clock ...string) []interval.Minute {
	out := []interval.Minute{}
	for _, c := range clock {
		m, err := interval.ParseClock(c)
		if err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	return out
}

type fixture struct {
	store *storage.MemoryStore
	cal   *calendar.Model
	gen   *availability.Generator
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	store.PutProfessional(model.Professional{ID: "pro-1", SalonID: "salon-1", Active: true})
	cal := calendar.New(store)
	if err := cal.SetWorkingHours(context.Background(), "pro-1", time.Monday, []interval.Interval{{Start: 540, End: 720}}); err != nil {
		t.Fatalf("set hours: %v", err)
	}
	gen := availability.NewGenerator(cal, store, availability.Options{Now: fixedClock(now)})
	return fixture{store: store, cal: cal, gen: gen}
}

func (f fixture) book(t *testing.T, start, end interval.Minute) {
	t.Helper()
	_, err := f.store.Insert(context.Background(), model.Appointment{
		SalonID: "salon-1", ProfessionalID: "pro-1", ClientID: "c", ServiceID: "s",
		Date: monday, Start: start, End: end,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
}

var longAgo = time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAvailableSlots_EmptyDay(t *testing.T) {
	f := newFixture(t, longAgo)
	got, err := f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 30, GranularityMinutes: 30})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	want := mins("09:00", "09:30", "10:00", "10:30", "11:00", "11:30")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAvailableSlots_ExistingBookingHalfOpen(t *testing.T) {
	f := newFixture(t, longAgo)
	f.book(t, 600, 630)

	got, err := f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 30, GranularityMinutes: 30})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	// [09:30, 10:00) ends exactly where the booking starts, so it stays bookable. This follows the
	// half-open rule over the worked example that drops 09:30; see "Scenario B" in DESIGN.md.
	want := mins("09:00", "09:30", "10:30", "11:00", "11:30")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got, _ = f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 60, GranularityMinutes: 30})
	want = mins("09:00", "10:30", "11:00")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("60 minute service: got %v, want %v", got, want)
	}
}

func TestAvailableSlots_FullDayException(t *testing.T) {
	f := newFixture(t, longAgo)
	if _, err := f.cal.AddException(context.Background(), model.Exception{ProfessionalID: "pro-1", Date: monday, FullDay: true}); err != nil {
		t.Fatalf("exception: %v", err)
	}
	got, err := f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 30})
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v; want empty", got, err)
	}
}

func TestAvailableSlots_ExactFitAtEndOfDay(t *testing.T) {
	f := newFixture(t, longAgo)
	f.book(t, 540, 690)

	got, _ := f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 30, GranularityMinutes: 15})
	if !reflect.DeepEqual(got, mins("11:30")) {
		t.Fatalf("exact fit: got %v", got)
	}
	got, _ = f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 31, GranularityMinutes: 15})
	if len(got) != 0 {
		t.Fatalf("free range shorter than duration must yield nothing, got %v", got)
	}
}

func TestAvailableSlots_RejectsOutOfRangeInput(t *testing.T) {
	f := newFixture(t, longAgo)
	cases := []struct {
		name string
		q    availability.Query
	}{
		{"zero duration", availability.Query{DurationMinutes: 0}},
		{"negative duration", availability.Query{DurationMinutes: -30}},
		{"duration over a day", availability.Query{DurationMinutes: 1441}},
		{"huge duration", availability.Query{DurationMinutes: math.MaxInt}},
		{"granularity over a day", availability.Query{DurationMinutes: 30, GranularityMinutes: 1441}},
		{"huge granularity", availability.Query{DurationMinutes: 30, GranularityMinutes: math.MaxInt}},
		{"negative buffer", availability.Query{DurationMinutes: 30, BufferMinutes: -5}},
		{"huge buffer", availability.Query{DurationMinutes: 30, BufferMinutes: math.MaxInt}},
	}
	for _, tc := range cases {
		tc.q.ProfessionalID = "pro-1"
		tc.q.Date = monday
		_, err := f.gen.AvailableSlots(context.Background(), tc.q)
		if !errors.Is(err, model.ErrInvalidArgument) {
			t.Fatalf("%s: expected ErrInvalidArgument, got %v", tc.name, err)
		}
	}

	got, err := f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 30, GranularityMinutes: 1440})
	if err != nil {
		t.Fatalf("day-long granularity: %v", err)
	}
	if !reflect.DeepEqual(got, mins("09:00")) {
		t.Fatalf("day-long granularity: got %v", got)
	}
}

func TestAvailableSlots_UnknownProfessional(t *testing.T) {
	f := newFixture(t, longAgo)
	_, err := f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "ghost", Date: monday, DurationMinutes: 30})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAvailableSlots_DefaultGranularity(t *testing.T) {
	store := storage.NewMemoryStore()
	store.PutProfessional(model.Professional{ID: "pro-1", Active: true})
	cal := calendar.New(store)
	_ = cal.SetWorkingHours(context.Background(), "pro-1", time.Monday, []interval.Interval{{Start: 540, End: 600}})
	gen := availability.NewGenerator(cal, store, availability.Options{DefaultGranularityMinutes: 20, Now: fixedClock(longAgo)})

	got, _ := gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 20})
	if !reflect.DeepEqual(got, mins("09:00", "09:20", "09:40")) {
		t.Fatalf("configured default: got %v", got)
	}
	got, _ = gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 20, GranularityMinutes: 30})
	if !reflect.DeepEqual(got, mins("09:00", "09:30")) {
		t.Fatalf("query granularity: got %v", got)
	}
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	now := time.Date(2030, 3, 4, 10, 1, 0, 0, time.UTC)
	f := newFixture(t, now)

	got, _ := f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 30})
	if !reflect.DeepEqual(got, mins("10:30", "11:00", "11:30")) {
		t.Fatalf("today: got %v", got)
	}
	yesterdayView := availability.NewGenerator(f.cal, f.store, availability.Options{Now: fixedClock(now.AddDate(0, 0, 7))})
	got, _ = yesterdayView.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 30})
	if len(got) != 0 {
		t.Fatalf("past date: got %v", got)
	}
}

func TestAvailableSlots_SalonTimeZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 12:45 UTC is 09:45 in Sao Paulo (UTC-3, no DST in 2030).
	f := newFixture(t, time.Date(2030, 3, 4, 12, 45, 0, 0, time.UTC))
	got, _ := f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 30, Location: loc})
	if !reflect.DeepEqual(got, mins("10:00", "10:30", "11:00", "11:30")) {
		t.Fatalf("salon zone: got %v", got)
	}
}

func TestAvailableSlots_Buffer(t *testing.T) {
	f := newFixture(t, longAgo)
	f.book(t, 600, 630)

	got, _ := f.gen.AvailableSlots(context.Background(), availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 30, GranularityMinutes: 15, BufferMinutes: 15})
	want := mins("09:00", "09:15", "10:45", "11:00", "11:15", "11:30")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAvailableSlots_Deterministic(t *testing.T) {
	f := newFixture(t, longAgo)
	f.book(t, 570, 615)
	q := availability.Query{ProfessionalID: "pro-1", Date: monday, DurationMinutes: 45, GranularityMinutes: 15}

	first, err := f.gen.AvailableSlots(context.Background(), q)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := f.gen.AvailableSlots(context.Background(), q)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
	booked, _ := f.store.BookedIntervals(context.Background(), "pro-1", monday)
	if len(booked) != 1 {
		t.Fatalf("slot query changed stored state: %v", booked)
	}
}

func TestStartsStepsFromEachFreeRange(t *testing.T) {
	free := []interval.Interval{{Start: 545, End: 600}, {Start: 610, End: 640}}
	got := availability.Starts(free, 15, 15)
	want := []interval.Minute{545, 560, 575, 610, 625}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if availability.Starts(free, 15, 0) != nil {
		t.Fatal("zero step must yield nothing")
	}
}

func TestStartsStaysInsideRangeForHugeValues(t *testing.T) {
	free := []interval.Interval{{Start: 540, End: 720}}
	if got := availability.Starts(free, 30, math.MaxInt); !reflect.DeepEqual(got, []interval.Minute{540}) {
		t.Fatalf("huge step: got %v", got)
	}
	if got := availability.Starts(free, math.MaxInt, 30); len(got) != 0 {
		t.Fatalf("huge duration: got %v", got)
	}
	if got := availability.Starts(free, 180, 30); !reflect.DeepEqual(got, []interval.Minute{540}) {
		t.Fatalf("exact fit: got %v", got)
	}
}
