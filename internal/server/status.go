package server

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"pinktranscriber/internal/manager"
	"pinktranscriber/internal/queue"
	"pinktranscriber/internal/transport"
	"pinktranscriber/pkg/types"
)

// Ready reports whether transcription requests will be served.
func (s *Server) Ready() bool { return s.model.State() == manager.StateReady }

// Status builds the detailed status response served at /status.
func (s *Server) Status() types.StatusResponse {
	snap := s.model.Snapshot()
	total, failed := s.queue.Counts()
	resp := types.StatusResponse{
		State:          string(snap.State),
		Backend:        string(snap.Profile.Backend),
		Precision:      string(snap.Profile.Precision),
		Device:         snap.Profile.String(),
		Model:          snap.Model,
		QueueLen:       s.queue.Len(),
		JobsTotal:      total,
		JobsFailed:     failed,
		Error:          snap.Err,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		RSSBytes:       selfRSS(),
	}
	if s.queue.InService() {
		resp.InService = 1
	}
	if s.tr != nil {
		resp.Transport = string(s.tr.Kind())
		resp.Address = s.tr.Address()
	}
	return resp
}

// Recent returns recently completed jobs, oldest first.
func (s *Server) Recent() []queue.Record { return s.queue.Recent() }

// Transport returns the transport the server listens on.
func (s *Server) Transport() transport.Transport { return s.tr }

func selfRSS() uint64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	mi, err := p.MemoryInfo()
	if err != nil || mi == nil {
		return 0
	}
	return mi.RSS
}
