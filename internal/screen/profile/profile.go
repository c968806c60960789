// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package profile implements the profile screen: personal and business
// data, category links and the password change.
//
// The screen is always in exactly one Mode. Editing starts from a snapshot
// of the authoritative record and cancelling restores that snapshot
// verbatim. Saving is a two-step update (user, then partner) without
// compensation: when the second step fails the first stays committed and
// the screen reports a failure.
package profile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Javier-Pedernera/asociados-go/internal/form"
	"github.com/Javier-Pedernera/asociados-go/internal/media"
	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/notify"
	"github.com/Javier-Pedernera/asociados-go/internal/screen"
	"github.com/Javier-Pedernera/asociados-go/internal/store"
	"github.com/Javier-Pedernera/asociados-go/internal/submit"
	"github.com/Javier-Pedernera/asociados-go/internal/validate"
)

// Mode is the interaction mode of the screen.
type Mode int

// Modes.
const (
	Viewing Mode = iota
	Editing
	SelectingCategories
	ChangingPassword
)

func (m Mode) String() string {
	switch m {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case SelectingCategories:
		return "selecting_categories"
	case ChangingPassword:
		return "changing_password"
	default:
		return "unknown"
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Profile fields.
const (
	FieldFirstName    form.Field = "first_name"
	FieldLastName     form.Field = "last_name"
	FieldEmail        form.Field = "email"
	FieldCountry      form.Field = "country"
	FieldCity         form.Field = "city"
	FieldPhone        form.Field = "phone_number"
	FieldGender       form.Field = "gender"
	FieldBirthDate    form.Field = "birth_date"
	FieldNewsletter   form.Field = "subscribed_to_newsletter"
	FieldImage        form.Field = "image"
	FieldAddress      form.Field = "address"
	FieldContactInfo  form.Field = "contact_info"
	FieldBusinessType form.Field = "business_type"
	FieldCategories   form.Field = "categories"
)

// Password fields.
const (
	FieldCurrentPassword form.Field = "current_password"
	FieldNewPassword     form.Field = "new_password"
	FieldConfirmPassword form.Field = "confirm_password"
)

// Genders offered by the gender picker.
var Genders = []string{"Masculino", "Femenino", "Otro"}

// ErrNotEditable is returned by Set for fields that cannot be edited
// directly.
var ErrNotEditable = errors.New("field is not editable")

// Screen is the profile screen of one session.
type Screen struct {
	deps      screen.Deps
	form      *form.State
	passwords *form.State
	submit    *submit.Orchestrator

	mode Mode
	// editStart is the state restored by CancelEdit.
	editStart form.Snapshot
	// categoriesStart is the selection restored by CancelCategories.
	categoriesStart []int64

	categoryIDs *store.Selector[[]int64]
}

// New creates a profile screen. Call Mount before use.
func New(deps screen.Deps) *Screen {
	deps = deps.WithDefaults()
	s := &Screen{
		deps:        deps,
		passwords:   form.New(deps.Notify, nil, deps.Logger),
		submit:      submit.New(deps.Notify, deps.Logger),
		categoryIDs: store.UserCategoryIDs(),
	}
	s.form = form.New(deps.Notify, s.rules(), deps.Logger)
	return s
}

func (s *Screen) rules() form.Rules {
	return form.Rules{
		FieldFirstName:    form.MaxLength(validate.MaxNameLength),
		FieldLastName:     form.MaxLength(validate.MaxNameLength),
		FieldCity:         form.MaxLength(validate.MaxCityLength),
		FieldAddress:      form.MaxLength(validate.MaxAddressLength),
		FieldBusinessType: form.MaxLength(validate.MaxBusinessTypeLength),
		FieldContactInfo:  form.MaxLength(validate.MaxContactInfoLength),
		FieldCountry:      s.countryRule,
		FieldGender:       form.OneOf(Genders, false),
		FieldBirthDate: form.Date(func(d time.Time, _ form.Values) validate.Result {
			return validate.NotFuture(d, s.deps.Now())
		}),
		FieldNewsletter: boolRule,
	}
}

// countryRule refuses clearing the country and stores the catalog
// spelling when the catalog knows the name.
func (s *Screen) countryRule(raw any, _ form.Values) (any, validate.Result) {
	name := strings.TrimSpace(fmt.Sprint(raw))
	if raw == nil || name == "" {
		return nil, validate.Result{{Key: "validate.country_required"}}
	}
	cat := s.deps.Store.Catalog()
	if len(cat.Data().Countries) == 0 {
		return name, nil
	}
	canonical, ok := cat.CanonicalCountry(name)
	if !ok {
		return nil, validate.Result{{Key: "validate.option_invalid"}}
	}
	return canonical, nil
}

func boolRule(raw any, _ form.Values) (any, validate.Result) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, validate.Result{{Key: "validate.option_invalid"}}
		}
		return b, nil
	default:
		return nil, validate.Result{{Key: "validate.option_invalid"}}
	}
}

// Mount loads the records the screen shows and seeds the form from them.
// Load failures are logged; the screen shows whatever the store holds.
func (s *Screen) Mount(ctx context.Context) {
	if _, err := store.Dispatch(ctx, s.deps.Store, store.LoadData()); err != nil {
		s.deps.Logger.Warn("loading profile data failed", "error", err)
	}
	if _, err := store.Dispatch(ctx, s.deps.Store, store.FetchUserCategories()); err != nil {
		s.deps.Logger.Warn("loading user categories failed", "error", err)
	}
	if cat := s.deps.Store.Catalog(); cat != nil {
		if err := cat.RefreshCategories(ctx); err != nil {
			s.deps.Logger.Warn("loading categories failed", "error", err)
		}
	}
	s.reseed()
}

// reseed replaces the form with the authoritative record and returns to
// Viewing.
func (s *Screen) reseed() {
	st := s.deps.Store.State()
	values := form.Values{
		FieldCategories: slices.Clone(s.categoryIDs.Select(s.deps.Store)),
	}
	if u := st.User; u != nil {
		values[FieldFirstName] = u.FirstName
		values[FieldLastName] = u.LastName
		values[FieldEmail] = u.Email
		values[FieldCountry] = u.Country
		values[FieldCity] = u.City
		values[FieldPhone] = u.PhoneNumber
		values[FieldGender] = u.Gender
		values[FieldNewsletter] = u.SubscribedToNewsletter
		if d, err := form.ParseDate(u.BirthDate); err == nil {
			values[FieldBirthDate] = d
		}
	}
	if p := st.Partner; p != nil {
		values[FieldAddress] = p.Address
		values[FieldContactInfo] = p.ContactInfo
		values[FieldBusinessType] = p.BusinessType
	}
	s.form.Seed(values)
	s.mode = Viewing
	s.categoriesStart = nil
}

// Mode returns the current mode.
func (s *Screen) Mode() Mode {
	return s.mode
}

// BeginEdit switches from Viewing to Editing.
func (s *Screen) BeginEdit() error {
	if s.mode != Viewing {
		return s.deps.WrongMode()
	}
	s.submit.Reset()
	s.editStart = s.form.Snapshot()
	s.mode = Editing
	return nil
}

// CancelEdit discards every edit, including a pending category selection.
func (s *Screen) CancelEdit() error {
	if s.mode != Editing && s.mode != SelectingCategories {
		return s.deps.WrongMode()
	}
	s.form.Restore(s.editStart)
	s.categoriesStart = nil
	s.mode = Viewing
	return nil
}

// Set edits one field. A rejected edit leaves the field unchanged.
func (s *Screen) Set(field form.Field, raw any) error {
	if s.mode != Editing {
		return s.deps.WrongMode()
	}
	switch field {
	case FieldEmail, FieldImage, FieldCategories:
		return fmt.Errorf("%s: %w", field, ErrNotEditable)
	}
	return s.form.Set(field, raw)
}

// SetImage replaces the profile image with the compressed upload. Only
// one image is accepted.
func (s *Screen) SetImage(sources []media.Source) error {
	if s.mode != Editing {
		return s.deps.WrongMode()
	}
	payloads, err := s.deps.Compressor.CompressAll(sources, model.MaxProfileImages)
	if err != nil {
		s.deps.Notify.Show(notify.Error, s.imageError(err))
		return err
	}
	if len(payloads) == 0 {
		s.form.Clear(FieldImage)
		return nil
	}
	return s.form.Set(FieldImage, payloads)
}

func (s *Screen) imageError(err error) string {
	switch {
	case errors.Is(err, media.ErrTooManyImages):
		return s.deps.T("profile.image_limit", model.MaxProfileImages)
	case errors.Is(err, media.ErrUnsupportedFormat):
		return s.deps.T("media.unsupported")
	default:
		return s.deps.T("error.generic")
	}
}

// OpenCategories opens the category picker over the edit form.
func (s *Screen) OpenCategories() error {
	if s.mode != Editing {
		return s.deps.WrongMode()
	}
	s.categoriesStart = s.form.IDs(FieldCategories)
	s.mode = SelectingCategories
	return nil
}

// ToggleCategory adds or removes one category from the selection.
func (s *Screen) ToggleCategory(id int64) error {
	if s.mode != SelectingCategories {
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

// ConfirmCategories keeps the selection and returns to Editing.
func (s *Screen) ConfirmCategories() error {
	if s.mode != SelectingCategories {
		return s.deps.WrongMode()
	}
	s.categoriesStart = nil
	s.mode = Editing
	return nil
}

// CancelCategories restores the selection held when the picker opened.
func (s *Screen) CancelCategories() error {
	if s.mode != SelectingCategories {
		return s.deps.WrongMode()
	}
	if err := s.form.Set(FieldCategories, s.categoriesStart); err != nil {
		return err
	}
	s.categoriesStart = nil
	s.mode = Editing
	return nil
}

// Save sends the edits: the user record first, then the partner record
// with the category links. Unless the submission was refused locally the
// screen returns to Viewing, reseeded from the store.
func (s *Screen) Save(ctx context.Context) (submit.Outcome, error) {
	if s.mode != Editing {
		return submit.Outcome{}, s.deps.WrongMode()
	}

	userUpdate := s.userUpdate()
	partnerUpdate := model.PartnerUpdate{
		Address:      s.form.String(FieldAddress),
		ContactInfo:  s.form.String(FieldContactInfo),
		BusinessType: s.form.String(FieldBusinessType),
		CategoryIDs:  s.form.IDs(FieldCategories),
	}
	if partnerUpdate.CategoryIDs == nil {
		partnerUpdate.CategoryIDs = []int64{}
	}

	out := s.submit.Submit(ctx, submit.Plan{
		Name: "profile",
		Validate: func() validate.Result {
			return validate.Phone(userUpdate.PhoneNumber)
		},
		Primary: func(ctx context.Context) error {
			_, err := store.Dispatch(ctx, s.deps.Store, store.UpdateUser(userUpdate))
			return err
		},
		Secondary: func(ctx context.Context) error {
			_, err := store.Dispatch(ctx, s.deps.Store, store.UpdatePartner(partnerUpdate))
			return err
		},
		Refresh: func(ctx context.Context) error {
			_, err := store.Dispatch(ctx, s.deps.Store, store.FetchUserCategories())
			return err
		},
		SuccessMessage:   s.deps.T("profile.updated"),
		GenericMessage:   s.deps.T("profile.update_failed"),
		SecondaryMessage: s.deps.T("profile.partner_update_failed"),
	})

	var verr *validate.Error
	if errors.Is(out.Err, submit.ErrInFlight) || errors.As(out.Err, &verr) {
		return out, nil
	}
	s.reseed()
	return out, nil
}

func (s *Screen) userUpdate() model.UserUpdate {
	u := model.UserUpdate{
		FirstName:              s.form.String(FieldFirstName),
		LastName:               s.form.String(FieldLastName),
		Email:                  s.form.String(FieldEmail),
		Country:                s.form.String(FieldCountry),
		City:                   s.form.String(FieldCity),
		PhoneNumber:            s.form.String(FieldPhone),
		Gender:                 s.form.String(FieldGender),
		SubscribedToNewsletter: s.form.Bool(FieldNewsletter),
	}
	if d, ok := s.form.Time(FieldBirthDate); ok {
		u.BirthDate = d.Format(model.DateLayout)
	}
	// The image is only sent when it was replaced.
	if images := s.form.Images(FieldImage); len(images) > 0 {
		uri := images[0].DataURI()
		u.ImageData = &uri
	}
	return u
}

// BeginPasswordChange opens the password form.
func (s *Screen) BeginPasswordChange() error {
	if s.mode != Viewing {
		return s.deps.WrongMode()
	}
	s.submit.Reset()
	s.passwords.Seed(nil)
	s.mode = ChangingPassword
	return nil
}

// SetNewPassword stores the new password and returns the rules it
// currently violates. The value is kept either way.
func (s *Screen) SetNewPassword(v string) (validate.Result, error) {
	if s.mode != ChangingPassword {
		return nil, s.deps.WrongMode()
	}
	_ = s.passwords.Set(FieldNewPassword, v)
	return validate.NewPassword(v), nil
}

// SetCurrentPassword stores the current password.
func (s *Screen) SetCurrentPassword(v string) error {
	if s.mode != ChangingPassword {
		return s.deps.WrongMode()
	}
	return s.passwords.Set(FieldCurrentPassword, v)
}

// SetConfirmPassword stores the confirmation of the new password.
func (s *Screen) SetConfirmPassword(v string) error {
	if s.mode != ChangingPassword {
		return s.deps.WrongMode()
	}
	return s.passwords.Set(FieldConfirmPassword, v)
}

// ChangePassword checks the new password and sends it. Local failures keep
// the form open with its values; once the remote call has run the three
// fields are cleared and the screen returns to Viewing.
func (s *Screen) ChangePassword(ctx context.Context) (submit.Outcome, error) {
	if s.mode != ChangingPassword {
		return submit.Outcome{}, s.deps.WrongMode()
	}

	newPassword := s.passwords.String(FieldNewPassword)
	current := s.passwords.String(FieldCurrentPassword)
	confirm := s.passwords.String(FieldConfirmPassword)

	out := s.submit.Submit(ctx, submit.Plan{
		Name: "change_password",
		Validate: func() validate.Result {
			if r := validate.NewPassword(newPassword); !r.Valid() {
				return r
			}
			if confirm == "" {
				return validate.Result{{Key: "profile.password_confirm_required"}}
			}
			if confirm != newPassword {
				return validate.Result{{Key: "profile.password_mismatch"}}
			}
			return nil
		},
		Primary: func(ctx context.Context) error {
			_, err := store.Dispatch(ctx, s.deps.Store, store.ChangePassword(newPassword, current))
			return err
		},
		Cleanup: func() {
			s.passwords.Seed(nil)
			s.mode = Viewing
		},
		SuccessMessage: s.deps.T("profile.password_changed"),
		GenericMessage: s.deps.T("profile.password_change_failed"),
	})
	return out, nil
}

// CancelPasswordChange clears the password form and returns to Viewing.
func (s *Screen) CancelPasswordChange() error {
	if s.mode != ChangingPassword {
		return s.deps.WrongMode()
	}
	s.passwords.Seed(nil)
	s.mode = Viewing
	return nil
}

// Logout ends the session and moves to the login route.
func (s *Screen) Logout(ctx context.Context) error {
	if _, err := store.Dispatch(ctx, s.deps.Store, store.LogOut()); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	s.passwords.Seed(nil)
	s.reseed()
	s.deps.Nav.Navigate(screen.RouteLogin)
	return nil
}

// CategoryOption is one entry of the category picker.
type CategoryOption struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// View is the state rendered by the profile screen.
type View struct {
	Mode          Mode             `json:"mode"`
	Status        submit.State     `json:"status"`
	FirstName     string           `json:"first_name"`
	LastName      string           `json:"last_name"`
	Email         string           `json:"email"`
	Country       string           `json:"country"`
	City          string           `json:"city"`
	PhoneNumber   string           `json:"phone_number"`
	Gender        string           `json:"gender"`
	BirthDate     string           `json:"birth_date"`
	Newsletter    bool             `json:"subscribed_to_newsletter"`
	ImageURL      string           `json:"image_url,omitempty"`
	ImageReplaced bool             `json:"image_replaced"`
	Address       string           `json:"address"`
	ContactInfo   string           `json:"contact_info"`
	BusinessType  string           `json:"business_type"`
	Categories    []CategoryOption `json:"categories"`
	// PasswordRules lists the rules the new password still violates.
	PasswordRules []string `json:"password_rules,omitempty"`
}

// View returns the current screen state.
func (s *Screen) View() View {
	v := View{
		Mode:          s.mode,
		Status:        s.submit.State(),
		FirstName:     s.form.String(FieldFirstName),
		LastName:      s.form.String(FieldLastName),
		Email:         s.form.String(FieldEmail),
		Country:       s.form.String(FieldCountry),
		City:          s.form.String(FieldCity),
		PhoneNumber:   s.form.String(FieldPhone),
		Gender:        s.form.String(FieldGender),
		Newsletter:    s.form.Bool(FieldNewsletter),
		ImageReplaced: s.form.Has(FieldImage),
		Address:       s.form.String(FieldAddress),
		ContactInfo:   s.form.String(FieldContactInfo),
		BusinessType:  s.form.String(FieldBusinessType),
	}
	if d, ok := s.form.Time(FieldBirthDate); ok {
		v.BirthDate = d.Format(model.DateLayout)
	}
	if u := s.deps.Store.State().User; u != nil && u.ImageURL != "" {
		v.ImageURL = imageURL(s.deps.ImageBaseURL, u.ImageURL)
	}

	selected := s.form.IDs(FieldCategories)
	for _, c := range s.deps.Store.Catalog().Data().Categories {
		v.Categories = append(v.Categories, CategoryOption{
			ID:       c.CategoryID,
			Name:     c.Name,
			Selected: slices.Contains(selected, c.CategoryID),
		})
	}

	if s.mode == ChangingPassword && s.passwords.Has(FieldNewPassword) {
		v.PasswordRules = validate.NewPassword(s.passwords.String(FieldNewPassword)).Messages(s.deps.Notify.Lang())
	}
	return v
}

func imageURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
