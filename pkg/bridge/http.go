// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
)

// StatsSource provides link statistics
type StatsSource interface {
	Snapshot() gnss.Snapshot
}

// LatestSource provides the most recent message per name
type LatestSource interface {
	Get(name string) (*gnss.Message, bool)
	Names() []string
}

type latestResponse struct {
	Name string    `json:"name"`
	Kind string    `json:"kind"`
	Time time.Time `json:"time"`
	Hex  string    `json:"hex"`
	Text string    `json:"text,omitempty"`
}

// NewRouter creates the HTTP API:
//
//	GET /health        liveness
//	GET /stats         statistics snapshot
//	GET /latest        names with a stored message
//	GET /latest/{name} most recent message of that name
func NewRouter(stats StatsSource, latest LatestSource) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	}).Methods("GET")

	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, stats.Snapshot())
	}).Methods("GET")

	router.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, latest.Names())
	}).Methods("GET")

	router.HandleFunc("/latest/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		m, ok := latest.Get(name)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(fmt.Sprintf("No message named %v", name)))
			return
		}
		resp := latestResponse{
			Name: name,
			Kind: m.Kind.String(),
			Time: m.Timestamp,
			Hex:  hex.EncodeToString(m.Data),
		}
		if m.Kind == gnss.KindNMEA {
			resp.Text = string(m.Body())
		}
		writeJSON(w, http.StatusOK, resp)
	}).Methods("GET")

	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	e := json.NewEncoder(w)
	e.SetIndent("", "    ")
	e.Encode(v)
}
