package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/events"
)

// handleEvents streams every event of ?channel= (default "default") as
// Server-Sent Events until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		writeError(w, http.StatusNotFound, "event stream disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = domain.DefaultChannel
	}
	sub, err := s.deps.Hub.Subscribe(channel, events.DefaultBuffer)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": connected %s\n\n", sub.ID)
	flusher.Flush()
	s.log.Debug("event stream opened", zap.String("channel", channel), zap.String("subscriber", sub.ID))

	ping := time.NewTicker(s.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.log.Debug("event stream closed", zap.String("subscriber", sub.ID))
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

// writeSSE writes one event frame; multi-line data becomes several data lines.
func writeSSE(w http.ResponseWriter, ev domain.Event) {
	fmt.Fprintf(w, "event: %s\n", ev.Type)
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}
