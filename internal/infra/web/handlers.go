package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"telegram-club-subscription/internal/infra/logging"
	"telegram-club-subscription/internal/usecase"
)

// handleResult terminates the gateway's ResultURL delivery. The response is
// always HTTP 200 with one of the exact ASCII bodies the gateway knows:
// "OK<InvId>" stops redelivery, "ERROR: ..." triggers a retry on its side.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		fmt.Fprint(w, "ERROR: Missing parameters")
		return
	}

	params := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		params[k] = r.PostForm.Get(k)
	}
	n := usecase.Notification{
		OutSum:    params["OutSum"],
		InvoiceID: params["InvId"],
		Signature: params["SignatureValue"],
		Params:    params,
	}

	ctx := logging.WithInvoiceID(r.Context(), n.InvoiceID)
	body, err := s.paymentUC.HandleResult(ctx, n)
	if err != nil {
		logging.With(ctx, s.log).Warn().Err(err).Msg("notification rejected")
	}
	fmt.Fprint(w, body)
}

// The redirect pages carry no state transition; the payment is reconciled
// through ResultURL only.
func (s *Server) handleSuccessRedirect(w http.ResponseWriter, r *http.Request) {
	s.renderReturnPage(w, "Оплата успешно обработана!", "Вы можете закрыть эту страницу и вернуться в бот.")
}

func (s *Server) handleFailRedirect(w http.ResponseWriter, r *http.Request) {
	s.renderReturnPage(w, "Оплата не была завершена", "Вы можете закрыть эту страницу и вернуться в бот.")
}

func (s *Server) renderReturnPage(w http.ResponseWriter, title, note string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body><h1>%s</h1><p>%s</p><p><a href="https://t.me/%s">Вернуться в бот</a></p></body></html>`,
		title, note, s.botName)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.adminPass == "" || req.Password != s.adminPass {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsUC.Totals(r.Context())
	if err != nil {
		http.Error(w, "Failed to get stats", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleAdminImport bulk-grants the free trial to a list of Telegram ids
// (the masterclass import flow, same as the bot's /import_users command).
func (s *Server) handleAdminImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TelegramIDs []int64 `json:"telegram_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.TelegramIDs) == 0 {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	total, gifted := s.subUC.ImportUsers(r.Context(), req.TelegramIDs)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"total": total, "gifted": gifted})
}
