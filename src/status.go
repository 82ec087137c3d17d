package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Read-only status surface, per SPEC_FULL.md's domain-stack
 *		expansion and the explicit Non-goal carve-out ("no
 *		networked control" — this is observation only, nothing here
 *		accepts a command).
 *
 * Description:	A tiny net/http handler reports current state/BPM/take
 *		count as JSON; brutella/dnssd advertises it on the local
 *		network the same way the teacher's dns_sd.go advertises its
 *		service, so a phone or laptop on the same LAN can find a
 *		looper without configuration.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

// StatusSnapshot is the read-only view exposed over HTTP.
type StatusSnapshot struct {
	State      string  `json:"state"`
	BPM        int     `json:"bpm"`
	TakeCount  int     `json:"take_count"`
	SessionDir string  `json:"session_dir"`
	LoopTime   float64 `json:"loop_time_seconds"`
}

// StatusServer serves StatusSnapshot as JSON and advertises itself via
// mDNS/DNS-SD.
type StatusServer struct {
	mu       sync.RWMutex
	snapshot StatusSnapshot

	httpSrv  *http.Server
	responder dnssd.Responder
	log      *log.Logger
}

// NewStatusServer builds (but does not start) a status server listening on
// addr (e.g. ":7980").
func NewStatusServer(addr string) *StatusServer {
	var s = &StatusServer{log: Sub("status")}

	var mux = http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)

	s.httpSrv = &http.Server{Addr: addr, Handler: mux}

	return s
}

// Update replaces the published snapshot. Called by looper.go after
// button-driven and bar-boundary state transitions; entering out_of_use
// does not publish a new snapshot.
func (s *StatusServer) Update(snap StatusSnapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	var snap = s.snapshot
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

// Start begins serving HTTP and, if the port can be resolved, announcing
// "_loopstation._tcp" over mDNS.
func (s *StatusServer) Start(ctx context.Context, instanceName string) error {
	var ln, err = net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return fmt.Errorf("listening for status server: %w", err)
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("status http server: %v", err)
		}
	}()

	var _, portStr, splitErr = net.SplitHostPort(ln.Addr().String())
	if splitErr != nil {
		s.log.Warnf("could not determine status port for mDNS: %v", splitErr)

		return nil
	}

	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	if err != nil {
		s.log.Warnf("could not parse status port %q: %v", portStr, err)

		return nil
	}

	var cfg = dnssd.Config{
		Name: instanceName,
		Type: "_loopstation._tcp",
		Port: port,
	}

	var svc, svcErr = dnssd.NewService(cfg)
	if svcErr != nil {
		s.log.Warnf("could not build dnssd service: %v", svcErr)

		return nil
	}

	var responder, respErr = dnssd.NewResponder()
	if respErr != nil {
		s.log.Warnf("could not start dnssd responder: %v", respErr)

		return nil
	}

	s.responder = responder

	if _, err := s.responder.Add(svc); err != nil {
		s.log.Warnf("could not register dnssd service: %v", err)

		return nil
	}

	go func() {
		if err := s.responder.Respond(ctx); err != nil && ctx.Err() == nil {
			s.log.Warnf("dnssd responder stopped: %v", err)
		}
	}()

	return nil
}

// Stop shuts down the HTTP listener.
func (s *StatusServer) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
