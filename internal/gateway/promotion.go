// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package gateway

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Javier-Pedernera/asociados-go/internal/form"
	"github.com/Javier-Pedernera/asociados-go/internal/i18n"
	"github.com/Javier-Pedernera/asociados-go/internal/middleware"
	"github.com/Javier-Pedernera/asociados-go/internal/model"
	"github.com/Javier-Pedernera/asociados-go/internal/screen/promotion"
)

// PromotionsView is the promotion list with the draft form.
type PromotionsView struct {
	Draft      promotion.View    `json:"draft"`
	Promotions []model.Promotion `json:"promotions"`
}

func (g *Gateway) respondPromotion(w http.ResponseWriter, err error, sess *Session) {
	g.respond(w, statusFor(err), sess, sess.promotion.View())
}

func (g *Gateway) listPromotions(w http.ResponseWriter, _ *http.Request, sess *Session) {
	promotions := sess.store.State().Promotions
	if promotions == nil {
		promotions = []model.Promotion{}
	}
	g.respond(w, http.StatusOK, sess, PromotionsView{
		Draft:      sess.promotion.View(),
		Promotions: promotions,
	})
}

func (g *Gateway) openPromotion(w http.ResponseWriter, _ *http.Request, sess *Session) {
	sess.promotion.Open()
	g.respondPromotion(w, nil, sess)
}

func (g *Gateway) closePromotion(w http.ResponseWriter, _ *http.Request, sess *Session) {
	sess.promotion.Close()
	g.respondPromotion(w, nil, sess)
}

func (g *Gateway) setPromotionField(w http.ResponseWriter, r *http.Request, sess *Session) {
	var body valueBody
	if err := decodeJSON(w, r, &body); err != nil {
		g.badRequest(w, r, err)
		return
	}
	err := sess.promotion.Set(form.Field(chi.URLParam(r, "field")), body.Value)
	g.respondPromotion(w, err, sess)
}

// categoriesBody is the body of PUT /promotions/draft/categories.
type categoriesBody struct {
	IDs []int64 `json:"ids"`
}

func (g *Gateway) setPromotionCategories(w http.ResponseWriter, r *http.Request, sess *Session) {
	var body categoriesBody
	if err := decodeJSON(w, r, &body); err != nil {
		g.badRequest(w, r, err)
		return
	}
	g.respondPromotion(w, sess.promotion.SetCategories(body.IDs), sess)
}

func (g *Gateway) togglePromotionCategory(w http.ResponseWriter, r *http.Request, sess *Session) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		g.badRequest(w, r, err)
		return
	}
	g.respondPromotion(w, sess.promotion.ToggleCategory(id), sess)
}

func (g *Gateway) setPromotionImages(w http.ResponseWriter, r *http.Request, sess *Session) {
	sources, cleanup, err := g.readUploads(w, r)
	if err != nil {
		g.badRequest(w, r, err)
		return
	}
	defer cleanup()
	g.respondPromotion(w, sess.promotion.SetImages(sources), sess)
}

func (g *Gateway) openPicker(w http.ResponseWriter, r *http.Request, sess *Session) {
	var p promotion.Picker
	switch chi.URLParam(r, "picker") {
	case "start":
		p = promotion.StartPicker
	case "end":
		p = promotion.EndPicker
	default:
		middleware.WriteError(w, http.StatusNotFound, i18n.T(middleware.GetLang(r), "error.not_found"))
		return
	}
	g.respondPromotion(w, sess.promotion.OpenPicker(p), sess)
}

func (g *Gateway) setStart(w http.ResponseWriter, r *http.Request, sess *Session) {
	var body valueBody
	if err := decodeJSON(w, r, &body); err != nil {
		g.badRequest(w, r, err)
		return
	}
	g.respondPromotion(w, sess.promotion.SetStart(body.Value), sess)
}

func (g *Gateway) confirmStart(w http.ResponseWriter, _ *http.Request, sess *Session) {
	g.respondPromotion(w, sess.promotion.ConfirmStart(), sess)
}

func (g *Gateway) setEnd(w http.ResponseWriter, r *http.Request, sess *Session) {
	var body valueBody
	if err := decodeJSON(w, r, &body); err != nil {
		g.badRequest(w, r, err)
		return
	}
	g.respondPromotion(w, sess.promotion.SetEnd(body.Value), sess)
}

func (g *Gateway) confirmEnd(w http.ResponseWriter, _ *http.Request, sess *Session) {
	g.respondPromotion(w, sess.promotion.ConfirmEnd(), sess)
}

func (g *Gateway) submitPromotion(w http.ResponseWriter, r *http.Request, sess *Session) {
	out, err := sess.promotion.Submit(r.Context())
	status := outcomeStatus(out)
	if err != nil {
		status = statusFor(err)
	}
	g.respond(w, status, sess, sess.promotion.View())
}
