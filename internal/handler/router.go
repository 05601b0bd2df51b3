package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/oalbalushi/tendering-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware системы тендеров.
// Проверка подписи Twilio включается только в боевом режиме, чтобы не мешать
// локальной отладке и эндпоинту симуляции.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/whatsapp", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if h.production {
					r.Use(custommiddleware.TwilioSignature(h.twilioAuthToken, h.logger))
				}
				r.Post("/webhook", h.Webhook)
			})
			r.Post("/simulate", h.Simulate)
		})

		r.Route("/tenders", func(r chi.Router) {
			r.Post("/", h.CreateTender)
			r.Get("/", h.ListTenders)
			r.Get("/{tenderID}", h.GetTender)
		})

		r.Route("/bids", func(r chi.Router) {
			r.Post("/", h.CreateBid)
			r.Get("/", h.ListBids)
			r.Get("/{bidID}", h.GetBid)
			r.Post("/winner", h.SelectWinner)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/suppliers", h.CreateSupplier)
			r.Get("/suppliers", h.ListSuppliers)
			r.Get("/notifications", h.ListNotifications)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", h.Summary)
			r.Get("/tenders", h.ListTenders)
			r.Get("/bids", h.ListBids)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
