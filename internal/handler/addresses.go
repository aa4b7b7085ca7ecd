package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/address"
)

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := h.Addresses.List(r.Context(), actorOf(r).UserID)
	h.writeAddresses(w, r, http.StatusOK, list, err)
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	var body addressBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	var a address.Address
	body.patch().Apply(&a)
	if err := a.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.Addresses.Create(r.Context(), actorOf(r).UserID, a)
	h.writeAddresses(w, r, http.StatusCreated, list, err)
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	var body addressBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.Addresses.Update(r.Context(), actorOf(r).UserID, chi.URLParam(r, "id"), body.patch())
	h.writeAddresses(w, r, http.StatusOK, list, err)
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	list, err := h.Addresses.Delete(r.Context(), actorOf(r).UserID, chi.URLParam(r, "id"))
	h.writeAddresses(w, r, http.StatusOK, list, err)
}

func (h *Handler) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	list, err := h.Addresses.SetDefault(r.Context(), actorOf(r).UserID, chi.URLParam(r, "id"))
	h.writeAddresses(w, r, http.StatusOK, list, err)
}

func (h *Handler) writeAddresses(w http.ResponseWriter, r *http.Request, status int, list []address.Address, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, toAddresses(list))
}
