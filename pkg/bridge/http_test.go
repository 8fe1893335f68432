// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/gnsslink/pkg/gnss"
)

func newTestRouter(t *testing.T) (*gnss.Statistics, *Latest, http.Handler) {
	stats := gnss.NewStatistics()
	latest := NewLatest()
	return stats, latest, NewRouter(stats, latest)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, _, h := newTestRouter(t)
	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestStats(t *testing.T) {
	stats, _, h := newTestRouter(t)
	stats.Update(gnss.Result{Kind: gnss.KindUBX, Length: 8})
	stats.Update(gnss.Result{Kind: gnss.KindUnknown, Length: 4, ChecksumErrors: 1})

	rec := get(t, h, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=UTF-8", rec.Header().Get("Content-Type"))

	var snap gnss.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, uint64(1), snap.UBXFrames)
	assert.Equal(t, uint64(4), snap.UnknownBytes)
	assert.Equal(t, uint64(1), snap.ChecksumErrors)
}

func TestLatest(t *testing.T) {
	_, latest, h := newTestRouter(t)

	rec := get(t, h, "/latest/GPGGA")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	gga := mustNMEA(t, "GPGGA,1,2")
	ack := mustUBX(t, gnss.ClassACK, gnss.IDAckAck, []byte{0x06, 0x01})
	latest.Set(gga)
	latest.Set(ack)

	rec = get(t, h, "/latest/GPGGA")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp latestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "GPGGA", resp.Name)
	assert.Equal(t, "NMEA", resp.Kind)
	assert.Equal(t, "GPGGA,1,2", resp.Text)

	rec = get(t, h, "/latest/ACK-ACK")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "b5620501020006010f38", resp.Hex)
	assert.Empty(t, resp.Text)

	rec = get(t, h, "/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, []string{"ACK-ACK", "GPGGA"}, names)
}

func TestMethodNotAllowed(t *testing.T) {
	_, _, h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
