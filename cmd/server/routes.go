package main

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"

	"idlecraft.ai/internal/i18n"
	"idlecraft.ai/internal/sim/game"
)

type routes struct {
	stats       *game.Stats
	saves       saveCounters
	locales     *i18n.Bundle
	views       http.Handler
	enablePprof bool
	log         *log.Logger
}

func newRouter(rt routes) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, rt.stats, rt.saves)
	}).Methods(http.MethodGet)
	r.HandleFunc("/v1/locales/{locale}", rt.handleLocale).Methods(http.MethodGet)
	if rt.views != nil {
		r.Handle("/v1/ws", rt.views).Methods(http.MethodGet)
	}

	if rt.enablePprof {
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		r.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	} else if rt.log != nil {
		rt.log.Printf("pprof endpoints disabled (IDLE_ENABLE_PPROF_HTTP=false)")
	}
	return r
}

// handleLocale serves one locale table so views can render reason ids.
func (rt routes) handleLocale(rw http.ResponseWriter, r *http.Request) {
	locale := mux.Vars(r)["locale"]
	msgs, ok := rt.locales.Messages(locale)
	if !ok {
		http.Error(rw, "unknown locale", http.StatusNotFound)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(struct {
		Locale   string            `json:"locale"`
		Messages map[string]string `json:"messages"`
	}{Locale: locale, Messages: msgs})
}
