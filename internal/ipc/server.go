package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"packline/internal/api"
	"packline/internal/daemon"
	"packline/internal/jobs"
	"packline/internal/logging"
	"packline/internal/report"
	"packline/internal/station"
)

const serviceName = "Packline"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServerOption customizes a Server.
type ServerOption func(*service)

// WithShutdown registers fn to run after a Stop request has stopped the
// daemon, typically to end the process.
func WithShutdown(fn func()) ServerOption {
	return func(s *service) { s.shutdown = fn }
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, opts ...ServerOption) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	for _, opt := range opts {
		opt(srv)
	}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) station() (*station.Station, error) {
	return s.daemon.Station()
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	if s.shutdown != nil {
		s.shutdown()
	}
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = os.Getpid()
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.SocketPath = status.SocketPath
	resp.LogPath = status.LogPath
	resp.Station = api.FromStationStatus(status.Station)
	return nil
}

func (s *service) JobList(req JobListRequest, resp *JobListResponse) error {
	filter := jobs.ListFilter{Limit: req.Limit}
	for _, value := range req.Statuses {
		status, ok := jobs.ParseHeaderStatus(value)
		if !ok {
			return fmt.Errorf("unknown job status %q", value)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	headers, err := s.daemon.Store().ListJobs(s.ctx, filter)
	if err != nil {
		return err
	}
	resp.Jobs = api.FromHeaders(headers)
	return nil
}

func (s *service) JobShow(req JobShowRequest, resp *JobShowResponse) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		st, err := s.station()
		if err != nil {
			return err
		}
		snap, err := st.Snapshot(s.ctx)
		if err != nil {
			return err
		}
		resp.Job = api.FromSnapshot(snap)
		return nil
	}
	job, err := s.loadJob(id)
	if err != nil {
		return err
	}
	resp.Job = api.FromJob(job)
	return nil
}

// loadJob prefers the station, which serves the active job from memory, and
// falls back to the legacy table for ids that were never migrated.
func (s *service) loadJob(id string) (*jobs.Job, error) {
	var reader jobs.Reader = s.daemon.Store()
	if st, err := s.station(); err == nil {
		reader = st
	}
	job, err := reader.LoadJob(s.ctx, id)
	if errors.Is(err, jobs.ErrNotFound) && strings.HasPrefix(id, jobs.LegacyIDPrefix) {
		return jobs.NewLegacyReader(s.daemon.Store().DB()).LoadJob(s.ctx, id)
	}
	return job, err
}

func (s *service) JobLoad(req JobLoadRequest, resp *JobResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	snap, err := st.LoadProductList(s.ctx, station.LoadRequest{
		Path:           req.Path,
		Name:           req.Name,
		BoxFile:        req.BoxFile,
		ItemsPerBox:    req.ItemsPerBox,
		DateRequired:   req.DateRequired,
		ProductionDate: req.ProductionDate,
		ForceShortCode: req.ForceShortCode,
	})
	if err != nil {
		return err
	}
	resp.Job = api.FromHeader(snap.Header)
	resp.Verified = snap.Verified
	resp.Total = snap.Total
	return nil
}

func (s *service) JobActivate(req JobActivateRequest, resp *JobResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	snap, err := st.Activate(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Job = api.FromHeader(snap.Header)
	resp.Verified = snap.Verified
	resp.Total = snap.Total
	return nil
}

func (s *service) JobCopy(req JobCopyRequest, resp *JobCopyResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	id, err := st.Copy(s.ctx, req.ID, req.Name)
	if err != nil {
		return err
	}
	resp.ID = id
	return nil
}

func (s *service) JobDelete(req JobDeleteRequest, resp *JobDeleteResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	if err := st.Delete(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Deleted = true
	return nil
}

func (s *service) BoxLabels(req BoxLabelsRequest, resp *BoxLabelsResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	n, err := st.LoadBoxLabels(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Labels = n
	return nil
}

func (s *service) Scan(req ScanRequest, resp *ScanResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	res, err := st.Scan(s.ctx, req.Code)
	if err != nil {
		return err
	}
	resp.Result = api.FromResult(res)
	return nil
}

func (s *service) Verify(req VerifyRequest, resp *ScanResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	res, err := st.ManualVerify(s.ctx, req.DisplayID)
	if err != nil {
		return err
	}
	resp.Result = api.FromResult(res)
	return nil
}

func (s *service) Reset(req ResetRequest, resp *CountResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	n, err := st.Reset(s.ctx, req.IDs, req.All)
	if err != nil {
		return err
	}
	resp.Count = n
	return nil
}

func (s *service) DeleteItems(req DeleteItemsRequest, resp *CountResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	n, err := st.DeleteItems(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Count = n
	return nil
}

func (s *service) UpdateSettings(req UpdateSettingsRequest, resp *UpdateSettingsResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	opts, err := st.UpdateSettings(s.ctx, station.SettingsUpdate{
		ItemsPerBox:    req.ItemsPerBox,
		DateRequired:   req.DateRequired,
		ProductionDate: req.ProductionDate,
		ForceShortCode: req.ForceShortCode,
	})
	if err != nil {
		return err
	}
	resp.Options = api.FromOptions(opts)
	return nil
}

func (s *service) ScanLog(req ScanLogRequest, resp *ScanLogResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	resp.Entries = api.FromLogEntries(st.ScanLog(req.Limit))
	return nil
}

func (s *service) Export(req ExportRequest, resp *ExportResponse) error {
	kind, err := report.ParseKind(req.Kind)
	if err != nil {
		return err
	}
	st, err := s.station()
	if err != nil {
		return err
	}
	files, err := st.Export(s.ctx, kind)
	if err != nil {
		return err
	}
	resp.Files = files
	return nil
}

func (s *service) Print(req PrintRequest, resp *PrintResponse) error {
	st, err := s.station()
	if err != nil {
		return err
	}
	if err := st.Print(s.ctx, req.DisplayID, req.Target); err != nil {
		return err
	}
	resp.Printed = true
	return nil
}
