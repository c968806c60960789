// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package promotion implements the promotion creation form.
//
// Dates follow two rules. Choosing a start date always clears the end
// date, and an end date must fall strictly after the start date. The
// second rule is checked when the end date is picked, again when the
// picker is confirmed and once more on submit.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"html"
	"slices"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Javier-Pedernera/asociados-go/internal/form"
	"github.com/Javier-Pedernera/asociados-go/internal/media"
	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/screen"
	"github.com/Javier-Pedernera/asociados-go/internal/store"
	"github.com/Javier-Pedernera/asociados-go/internal/submit"
	"github.com/Javier-Pedernera/asociados-go/internal/validate"
)

// Form fields.
const (
	FieldTitle       form.Field = "title"
	FieldDescription form.Field = "description"
	FieldDiscount    form.Field = "discount_percentage"
	FieldQuantity    form.Field = "available_quantity"
	FieldStart       form.Field = "start_date"
	FieldEnd         form.Field = "end_date"
	FieldCategories  form.Field = "categories"
	FieldImages      form.Field = "images"
)

// Mode tells whether the form is open.
type Mode int

// Modes.
const (
	Closed Mode = iota
	Drafting
)

func (m Mode) String() string {
	if m == Drafting {
		return "drafting"
	}
	return "closed"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Picker is the date picker currently open.
type Picker int

// Pickers.
const (
	NoPicker Picker = iota
	StartPicker
	EndPicker
)

func (p Picker) String() string {
	switch p {
	case StartPicker:
		return "start"
	case EndPicker:
		return "end"
	default:
		return "none"
	}
}

// MarshalText encodes the picker by name.
func (p Picker) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ErrNotEditable is returned by Set for fields with a dedicated setter.
var ErrNotEditable = errors.New("field is not editable through Set")

// requiredOrder is the order missing fields are reported in.
var requiredOrder = []string{
	"field.title",
	"field.discount_percentage",
	"field.start_date",
	"field.end_date",
	"field.categories",
}

// Screen is the promotion form of one session.
type Screen struct {
	deps   screen.Deps
	form   *form.State
	submit *submit.Orchestrator
	policy *bluemonday.Policy

	mode   Mode
	picker Picker

	activeBranch *store.Selector[*model.Branch]
}

// New creates a closed promotion form.
func New(deps screen.Deps) *Screen {
	deps = deps.WithDefaults()
	s := &Screen{
		deps:         deps,
		submit:       submit.New(deps.Notify, deps.Logger),
		policy:       bluemonday.StrictPolicy(),
		activeBranch: store.ActiveBranch(),
	}
	s.form = form.New(deps.Notify, s.rules(), deps.Logger)
	return s
}

func (s *Screen) rules() form.Rules {
	return form.Rules{
		FieldTitle: form.Text(validate.Title),
		FieldDescription: func(raw any, _ form.Values) (any, validate.Result) {
			str, _ := raw.(string)
			// Markup is dropped; the remaining text stays as typed.
			return html.UnescapeString(s.policy.Sanitize(str)), nil
		},
		FieldDiscount: form.Percentage(),
		FieldQuantity: form.Quantity(),
		FieldStart:    form.Date(nil),
		FieldEnd: form.Date(func(end time.Time, current form.Values) validate.Result {
			start, ok := current[FieldStart].(time.Time)
			if !ok || start.IsZero() {
				return validate.Result{{Key: "validate.start_required"}}
			}
			return validate.EndAfterStart(start, end)
		}),
	}
}

// Open starts an empty draft.
func (s *Screen) Open() {
	s.form.Seed(nil)
	s.submit.Reset()
	s.picker = NoPicker
	s.mode = Drafting
}

// Close discards the draft.
func (s *Screen) Close() {
	s.form.Seed(nil)
	s.submit.Reset()
	s.picker = NoPicker
	s.mode = Closed
}

// Mode returns whether the form is open.
func (s *Screen) Mode() Mode {
	return s.mode
}

// Set edits a text or numeric field. A rejected edit leaves the field
// unchanged.
func (s *Screen) Set(field form.Field, raw any) error {
	if s.mode != Drafting {
		return s.deps.WrongMode()
	}
	switch field {
	case FieldTitle, FieldDescription, FieldDiscount, FieldQuantity:
		return s.form.Set(field, raw)
	default:
		return fmt.Errorf("%s: %w", field, ErrNotEditable)
	}
}

// OpenPicker opens the start or end date picker. The end picker needs a
// start date.
func (s *Screen) OpenPicker(p Picker) error {
	if s.mode != Drafting {
		return s.deps.WrongMode()
	}
	if p == EndPicker && !s.form.Has(FieldStart) {
		s.deps.Notify.Show(notify.Error, s.deps.T("validate.start_required"))
		return validate.Result{{Key: "validate.start_required"}}.Err()
	}
	s.picker = p
	return nil
}

// SetStart picks the start date and clears the end date.
func (s *Screen) SetStart(raw any) error {
	if s.mode != Drafting {
		return s.deps.WrongMode()
	}
	if err := s.form.Set(FieldStart, raw); err != nil {
		return err
	}
	s.form.Clear(FieldEnd)
	return nil
}

// ConfirmStart closes the start picker.
func (s *Screen) ConfirmStart() error {
	if s.mode != Drafting {
		return s.deps.WrongMode()
	}
	s.picker = NoPicker
	return nil
}

// SetEnd picks the end date. A date on or before the start date is
// rejected and the end date keeps its last valid value.
func (s *Screen) SetEnd(raw any) error {
	if s.mode != Drafting {
		return s.deps.WrongMode()
	}
	return s.form.Set(FieldEnd, raw)
}

// ConfirmEnd closes the end picker after checking the pair again. An end
// date that no longer follows the start date is moved to the day after
// the start date.
func (s *Screen) ConfirmEnd() error {
	if s.mode != Drafting {
		return s.deps.WrongMode()
	}
	s.picker = NoPicker

	start, hasStart := s.form.Time(FieldStart)
	end, hasEnd := s.form.Time(FieldEnd)
	if !hasStart || !hasEnd {
		return nil
	}
	r := validate.EndAfterStart(start, end)
	if r.Valid() {
		return nil
	}
	s.deps.Notify.Show(notify.Error, r.Messages(s.deps.Notify.Lang())[0])
	s.form.Seed(s.withEnd(start.AddDate(0, 0, 1)))
	return r.Err()
}

func (s *Screen) withEnd(end time.Time) form.Values {
	values := s.form.Values()
	values[FieldEnd] = end
	return values
}

// SetCategories replaces the category selection.
func (s *Screen) SetCategories(ids []int64) error {
	if s.mode != Drafting {
		return s.deps.WrongMode()
	}
	ids = slices.Clone(ids)
	slices.Sort(ids)
	return s.form.Set(FieldCategories, slices.Compact(ids))
}

// ToggleCategory adds or removes one category.
func (s *Screen) ToggleCategory(id int64) error {
	if s.mode != Drafting {
		return s.deps.WrongMode()
	}
	ids := s.form.IDs(FieldCategories)
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	} else {
		ids = append(ids, id)
	}
	return s.form.Set(FieldCategories, ids)
}

// SetImages replaces the image selection with the compressed uploads. A
// selection over the limit clears the images.
func (s *Screen) SetImages(sources []media.Source) error {
	if s.mode != Drafting {
		return s.deps.WrongMode()
	}
	payloads, err := s.deps.Compressor.CompressAll(sources, model.MaxPromotionImages)
	if err != nil {
		s.form.Clear(FieldImages)
		switch {
		case errors.Is(err, media.ErrTooManyImages):
			s.deps.Notify.Show(notify.Error, s.deps.T("promotion.image_limit", model.MaxPromotionImages))
		case errors.Is(err, media.ErrUnsupportedFormat):
			s.deps.Notify.Show(notify.Error, s.deps.T("media.unsupported"))
		default:
			s.deps.Notify.Show(notify.Error, s.deps.T("error.generic"))
		}
		return err
	}
	return s.form.Set(FieldImages, payloads)
}

// Submit creates the promotion under the active branch and re-fetches the
// promotion list on success.
func (s *Screen) Submit(ctx context.Context) (submit.Outcome, error) {
	if s.mode != Drafting {
		return submit.Outcome{}, s.deps.WrongMode()
	}

	branch := s.activeBranch.Select(s.deps.Store)
	st := s.deps.Store.State()
	userID := st.UserID()

	var payload model.NewPromotion
	out := s.submit.Submit(ctx, submit.Plan{
		Name: "create_promotion",
		Validate: func() validate.Result {
			if branch == nil || userID == 0 {
				return validate.Result{{Key: "promotion.missing_branch"}}
			}
			if r := s.missing(); !r.Valid() {
				return r
			}
			start, _ := s.form.Time(FieldStart)
			end, _ := s.form.Time(FieldEnd)
			if r := validate.EndAfterStart(start, end); !r.Valid() {
				return r
			}
			payload = s.payload(*branch, userID)
			return nil
		},
		Primary: func(ctx context.Context) error {
			_, err := store.Dispatch(ctx, s.deps.Store, store.CreatePromotion(payload))
			return err
		},
		Refresh: func(ctx context.Context) error {
			_, err := store.Dispatch(ctx, s.deps.Store, store.FetchPromotions())
			return err
		},
		SuccessMessage: s.deps.T("promotion.created"),
		GenericMessage: s.deps.T("promotion.create_failed"),
	})
	return out, nil
}

// missing reports every required field without a value at once.
func (s *Screen) missing() validate.Result {
	return validate.Required(requiredOrder, map[string]bool{
		"field.title":               s.form.Has(FieldTitle),
		"field.discount_percentage": s.form.Has(FieldDiscount),
		"field.start_date":          s.form.Has(FieldStart),
		"field.end_date":            s.form.Has(FieldEnd),
		"field.categories":          s.form.Has(FieldCategories),
	})
}

func (s *Screen) payload(branch model.Branch, userID int64) model.NewPromotion {
	start, _ := s.form.Time(FieldStart)
	end, _ := s.form.Time(FieldEnd)
	discount, _ := s.form.Int(FieldDiscount)

	images := s.form.Images(FieldImages)
	if images == nil {
		images = []model.ImagePayload{}
	}
	return model.NewPromotion{
		BranchID:           branch.BranchID,
		Title:              s.form.String(FieldTitle),
		Description:        s.form.String(FieldDescription),
		StartDate:          start.Format(model.DateLayout),
		ExpirationDate:     end.Format(model.DateLayout),
		DiscountPercentage: discount,
		AvailableQuantity:  s.form.IntPtr(FieldQuantity),
		PartnerID:          userID,
		StatusID:           branch.Status.ID,
		CategoryIDs:        s.form.IDs(FieldCategories),
		Images:             images,
	}
}

// DismissSuccess closes the success notification. After a successful
// submission this also closes the form.
func (s *Screen) DismissSuccess() {
	s.deps.Notify.Dismiss(notify.Success)
	if s.mode == Drafting && s.submit.State() == submit.Succeeded {
		s.Close()
	}
}

// View is the state rendered by the promotion form.
type View struct {
	Mode               Mode         `json:"mode"`
	Picker             Picker       `json:"picker"`
	Status             submit.State `json:"status"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	DiscountPercentage *int         `json:"discount_percentage"`
	AvailableQuantity  *int         `json:"available_quantity"`
	StartDate          string       `json:"start_date"`
	EndDate            string       `json:"end_date"`
	CategoryIDs        []int64      `json:"category_ids"`
	ImageCount         int          `json:"image_count"`
	BranchID           int64        `json:"branch_id,omitempty"`
}

// View returns the current form state.
func (s *Screen) View() View {
	v := View{
		Mode:               s.mode,
		Picker:             s.picker,
		Status:             s.submit.State(),
		Title:              s.form.String(FieldTitle),
		Description:        s.form.String(FieldDescription),
		DiscountPercentage: s.form.IntPtr(FieldDiscount),
		AvailableQuantity:  s.form.IntPtr(FieldQuantity),
		CategoryIDs:        s.form.IDs(FieldCategories),
		ImageCount:         len(s.form.Images(FieldImages)),
	}
	if d, ok := s.form.Time(FieldStart); ok {
		v.StartDate = d.Format(model.DateLayout)
	}
	if d, ok := s.form.Time(FieldEnd); ok {
		v.EndDate = d.Format(model.DateLayout)
	}
	if b := s.activeBranch.Select(s.deps.Store); b != nil {
		v.BranchID = b.BranchID
	}
	return v
}
