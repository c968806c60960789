package form

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/validate"
)

func TestMain(m *testing.M) {
	i18n.MustInit()
	os.Exit(m.Run())
}

type recorder struct {
	shown []notify.Request
}

func (r *recorder) Show(kind notify.Kind, msg string) {
	r.shown = append(r.shown, notify.Request{Kind: kind, Message: msg})
}

func (r *recorder) Lang() string { return "es" }

const (
	fieldTitle    Field = "title"
	fieldDiscount Field = "discount"
	fieldQuantity Field = "quantity"
	fieldNote     Field = "note"
	fieldCats     Field = "categories"
	fieldStart    Field = "start"
)

func newTestState(n Notifier) *State {
	return New(n, Rules{
		fieldTitle:    Text(validate.Title),
		fieldDiscount: Percentage(),
		fieldQuantity: Quantity(),
		fieldStart:    Date(nil),
	}, nil)
}

func TestSetAccepts(t *testing.T) {
	rec := &recorder{}
	s := newTestState(rec)

	if err := s.Set(fieldTitle, "Sale"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := s.String(fieldTitle); got != "Sale" {
		t.Errorf("String() = %q, want Sale", got)
	}
	if len(rec.shown) != 0 {
		t.Errorf("notifications = %v, want none", rec.shown)
	}
}

func TestSetRejectsOverlongTitle(t *testing.T) {
	rec := &recorder{}
	s := newTestState(rec)

	_ = s.Set(fieldTitle, strings.Repeat("a", 45))
	before := s.String(fieldTitle)

	err := s.Set(fieldTitle, strings.Repeat("a", 46))

	var verr *validate.Error
	if !errors.As(err, &verr) {
		t.Fatalf("Set() error = %v, want *validate.Error", err)
	}
	if got := s.String(fieldTitle); got != before {
		t.Errorf("value changed to %d chars, want unchanged %d", len(got), len(before))
	}
	if len(rec.shown) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(rec.shown))
	}
	if rec.shown[0].Kind != notify.Error || rec.shown[0].Message != "El título no puede superar los 45 caracteres." {
		t.Errorf("notification = %+v", rec.shown[0])
	}

	// Every rejected keystroke raises its own notification.
	_ = s.Set(fieldTitle, strings.Repeat("a", 47))
	if len(rec.shown) != 2 {
		t.Errorf("notifications = %d, want 2", len(rec.shown))
	}
}

func TestSetNumeric(t *testing.T) {
	s := newTestState(&recorder{})

	if err := s.Set(fieldDiscount, "50"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(fieldDiscount, "150"); err == nil {
		t.Fatal("Set(150) accepted")
	}
	if v, ok := s.Int(fieldDiscount); !ok || v != 50 {
		t.Errorf("Int() = %d, %v, want 50", v, ok)
	}

	if err := s.Set(fieldQuantity, "10"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(fieldQuantity, ""); err != nil {
		t.Fatalf("Set(\"\") error = %v", err)
	}
	if s.Has(fieldQuantity) {
		t.Error("quantity still set after clearing")
	}
	if s.IntPtr(fieldQuantity) != nil {
		t.Error("IntPtr() != nil after clearing")
	}
}

func TestSetNoRule(t *testing.T) {
	s := newTestState(nil)

	ids := []int64{1, 2}
	_ = s.Set(fieldCats, ids)
	ids[0] = 99

	if got := s.IDs(fieldCats); got[0] != 1 {
		t.Errorf("IDs() = %v, stored slice aliased caller's", got)
	}
	_ = s.Set(fieldNote, true)
	if !s.Bool(fieldNote) {
		t.Error("Bool() = false, want true")
	}
}

func TestSetDate(t *testing.T) {
	s := newTestState(&recorder{})

	if err := s.Set(fieldStart, "2024-01-01"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := s.Time(fieldStart)
	if !ok || !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Time() = %v, %v", got, ok)
	}
	if err := s.Set(fieldStart, "01/02/2024"); err == nil {
		t.Error("Set() accepted a malformed date")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestState(&recorder{})
	s.Seed(Values{
		fieldTitle:    "Original",
		fieldCats:     []int64{1, 2},
		fieldDiscount: intPtr(10),
		fieldNote:     []model.ImagePayload{{Filename: "a.jpg", Data: "AAAA"}},
	})

	snap := s.Snapshot()

	_ = s.Set(fieldTitle, "Edited")
	_ = s.Set(fieldCats, []int64{3})
	_ = s.Set(fieldDiscount, "20")

	s.Restore(snap)

	if got := s.String(fieldTitle); got != "Original" {
		t.Errorf("title = %q, want Original", got)
	}
	if got := s.IDs(fieldCats); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("categories = %v, want [1 2]", got)
	}
	if v, _ := s.Int(fieldDiscount); v != 10 {
		t.Errorf("discount = %d, want 10", v)
	}
	if got := s.Images(fieldNote); len(got) != 1 || got[0].Filename != "a.jpg" {
		t.Errorf("images = %v", got)
	}

	// Mutating the restored state leaves the snapshot intact.
	_ = s.Set(fieldTitle, "Again")
	s.Restore(snap)
	if got := s.String(fieldTitle); got != "Original" {
		t.Errorf("second restore title = %q, want Original", got)
	}
}

func TestClear(t *testing.T) {
	s := newTestState(nil)
	s.Seed(Values{fieldTitle: "x", fieldNote: "y"})

	s.Clear(fieldTitle, fieldNote)

	if s.Has(fieldTitle) || s.Has(fieldNote) {
		t.Errorf("values after Clear() = %v", s.Values())
	}
}

func TestOneOfRule(t *testing.T) {
	rec := &recorder{}
	s := New(rec, Rules{
		"gender":  OneOf([]string{"Masculino", "Femenino", "Otro"}, false),
		"country": OneOf([]string{"Chile", "Argentina"}, true),
	}, nil)

	if err := s.Set("gender", ""); err != nil {
		t.Errorf("optional empty gender rejected: %v", err)
	}
	if err := s.Set("gender", "X"); err == nil {
		t.Error("unlisted gender accepted")
	}
	if err := s.Set("country", "Chile"); err != nil {
		t.Fatalf("Set(country) error = %v", err)
	}
	if err := s.Set("country", ""); err == nil {
		t.Error("required country cleared")
	}
	if got := s.String("country"); got != "Chile" {
		t.Errorf("country = %q, want Chile", got)
	}
}

func intPtr(v int) *int { return &v }
