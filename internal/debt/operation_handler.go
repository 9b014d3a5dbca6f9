package debt

import "net/http"

// CreateOperation handles PUT /operation.
func (h *Handler) CreateOperation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateOperationRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := OperationInput{
		DebtID:        req.DebtsID,
		MoneyAmount:   req.MoneyAmount,
		MoneyReceiver: req.MoneyReceiver,
		Description:   req.Description,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	view, err := h.svc.CreateOperation(r.Context(), actor, in)
	h.respond(w, r, view, err)
}

func (h *Handler) AcceptOperation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.AcceptOperation(r.Context(), actor, r.PathValue("id"))
	h.respond(w, r, view, err)
}

func (h *Handler) DeclineOperation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.DeclineOperation(r.Context(), actor, r.PathValue("id"))
	h.respond(w, r, view, err)
}

// DeleteOperation handles DELETE /operation/{id}.
func (h *Handler) DeleteOperation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view, err := h.svc.DeleteOperation(r.Context(), actor, r.PathValue("id"))
	h.respond(w, r, view, err)
}
