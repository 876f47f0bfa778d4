// Command bank runs a deterministic acquiring-bank simulator for local
// development and integration testing. The outcome is selected by the last
// digit of the card number, so test fixtures can provoke every branch of
// the transfer client without network flakiness:
//
//	even digit  -> 200 {"id": "<uuid>"}
//	1, 7, 9     -> 422 {"code": "insufficient_funds"}
//	3           -> 422 {"code": "card_expired"}
//	5           -> 500 (simulated provider outage)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type transferRequest struct {
	Source struct {
		CardNumber string `json:"cardNumber"`
		CardExpiry string `json:"cardExpiry"`
		CVV        string `json:"cvv"`
	} `json:"source"`
	Recipient struct {
		AccountNumber string `json:"accountNumber"`
		SortCode      string `json:"sortCode"`
	} `json:"recipient"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "bank-simulator").Logger()

	port := 8090
	if raw := os.Getenv("BANK_PORT"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			logger.Fatal().Str("raw", raw).Msg("Invalid BANK_PORT")
		}
		port = p
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Post("/api/payments", func(w http.ResponseWriter, req *http.Request) {
		var body transferRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "invalid_request"})
			return
		}

		card := body.Source.CardNumber
		if card == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "invalid_request"})
			return
		}

		switch card[len(card)-1] {
		case '0', '2', '4', '6', '8':
			writeJSON(w, http.StatusOK, map[string]string{"id": uuid.New().String()})
		case '3':
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"code": "card_expired"})
		case '5':
			w.WriteHeader(http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"code": "insufficient_funds"})
		}
	})

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Starting bank simulator")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Info().Msg("Bank simulator exited")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
