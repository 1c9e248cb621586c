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
	"sync"

	"vinflow/internal/api"
	"vinflow/internal/daemon"
	"vinflow/internal/engine"
	"vinflow/internal/ledger"
	"vinflow/internal/logging"
	"vinflow/internal/roles"
	"vinflow/internal/stages"
)

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

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
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
	if err := rpcServer.RegisterName("Vinflow", srv); err != nil {
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
				s.logger.Warn("accept failed", logging.Error(err))
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
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) engine() *engine.Engine {
	return s.daemon.Engine()
}

func actorFromWire(a Actor) engine.Actor {
	return engine.Actor{ID: a.ID, Name: a.Name, Role: roles.Role(a.Role)}
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC")
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.LedgerDBPath = status.LedgerDBPath
	resp.LockPath = status.LockFilePath
	resp.StageCounts = api.StageCountsDTO(status.StageCounts)
	return nil
}

func (s *service) UnitCreate(req UnitCreateRequest, resp *UnitCreateResponse) error {
	attrs := ledger.NewUnit{
		StockNumber:     req.StockNumber,
		VIN:             req.VIN,
		Year:            req.Year,
		Make:            req.Make,
		Model:           req.Model,
		Grade:           ledger.Grade(req.Grade),
		ServiceLocation: req.ServiceLocation,
		EstimatedCost:   req.EstimatedCost,
		Vendors:         req.Vendors,
	}
	unit, err := s.engine().CreateUnit(s.ctx, attrs, actorFromWire(req.Actor), req.Note)
	if err != nil {
		return err
	}
	resp.Unit = api.FromUnit(unit)
	return nil
}

func (s *service) UnitList(req UnitListRequest, resp *UnitListResponse) error {
	var (
		units []*ledger.Unit
		err   error
	)
	if req.Stage == "" {
		units, err = s.engine().Units(s.ctx)
	} else {
		stage, ok := stages.Parse(req.Stage)
		if !ok {
			return fmt.Errorf("unknown stage %q", req.Stage)
		}
		units, err = s.engine().UnitsByStage(s.ctx, stage)
	}
	if err != nil {
		return err
	}
	resp.Units = api.FromUnits(units)
	return nil
}

func (s *service) UnitDescribe(req UnitDescribeRequest, resp *UnitDescribeResponse) error {
	eng := s.engine()
	var (
		unit *ledger.Unit
		err  error
	)
	switch {
	case req.ID != "":
		unit, err = eng.Unit(s.ctx, req.ID)
	case req.StockNumber != "":
		unit, err = eng.UnitByStockNumber(s.ctx, req.StockNumber)
	default:
		return errors.New("unit id or stock number required")
	}
	if err != nil {
		return err
	}

	history, err := eng.History(s.ctx, unit.ID)
	if err != nil {
		return err
	}
	notes, err := eng.Notes(s.ctx, unit.ID)
	if err != nil {
		return err
	}
	holds, err := eng.PartsHolds(s.ctx, unit.ID)
	if err != nil {
		return err
	}
	m, err := eng.Metrics(s.ctx, unit.ID)
	if err != nil {
		return err
	}

	cost := unit.EstimatedCost
	if unit.ActualCost > 0 {
		cost = unit.ActualCost
	}
	resp.Detail = api.UnitDetail{
		Unit:       api.FromUnit(unit),
		History:    api.FromEntries(history),
		Notes:      api.FromNotes(notes),
		PartsHolds: api.FromPartsHolds(holds),
		Metrics:    api.FromMetrics(m),
		Tier:       api.FromTier(eng.ApprovalTier(cost)),
	}
	return nil
}

func (s *service) Move(req MoveRequest, resp *MoveResponse) error {
	stage, ok := stages.Parse(req.Target)
	if !ok {
		return fmt.Errorf("unknown stage %q", req.Target)
	}
	result, err := s.engine().Transition(s.ctx, req.UnitID, stage, actorFromWire(req.Actor), req.Note)
	if err != nil {
		return err
	}
	resp.Transition = transitionDTO(result)
	return nil
}

func (s *service) Advance(req AdvanceRequest, resp *AdvanceResponse) error {
	result, err := s.engine().Advance(s.ctx, req.UnitID, actorFromWire(req.Actor), req.Note)
	if err != nil {
		return err
	}
	resp.Transition = transitionDTO(result)
	return nil
}

func (s *service) SetPriority(req SetPriorityRequest, resp *SetPriorityResponse) error {
	unit, err := s.engine().SetPriority(s.ctx, req.UnitID, ledger.Priority(req.Priority), actorFromWire(req.Actor))
	if err != nil {
		return err
	}
	resp.Unit = api.FromUnit(unit)
	return nil
}

func (s *service) AddNote(req AddNoteRequest, resp *AddNoteResponse) error {
	note, err := s.engine().AddNote(s.ctx, req.UnitID, req.Body, ledger.NoteCategory(req.Category), actorFromWire(req.Actor))
	if err != nil {
		return err
	}
	resp.Note = api.FromNote(note)
	return nil
}

func (s *service) HoldForParts(req HoldForPartsRequest, resp *HoldForPartsResponse) error {
	result, err := s.engine().HoldForParts(s.ctx, engine.PartsHoldRequest{
		UnitID:     req.UnitID,
		PartName:   req.PartName,
		PartNumber: req.PartNumber,
		Supplier:   req.Supplier,
		Note:       req.Note,
	}, actorFromWire(req.Actor))
	if err != nil {
		return err
	}
	resp.Transition = transitionDTO(result)
	return nil
}

func (s *service) SetCost(req SetCostRequest, resp *SetCostResponse) error {
	unit, err := s.engine().SetActualCost(s.ctx, req.UnitID, req.Cost, actorFromWire(req.Actor))
	if err != nil {
		return err
	}
	resp.Unit = api.FromUnit(unit)
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	entries, err := s.engine().History(s.ctx, req.UnitID)
	if err != nil {
		return err
	}
	resp.Entries = api.FromEntries(entries)
	return nil
}

func (s *service) Alerts(_ AlertsRequest, resp *AlertsResponse) error {
	alerts, err := s.engine().AgingAlerts(s.ctx)
	if err != nil {
		return err
	}
	resp.Alerts = api.FromAgingAlerts(alerts)
	return nil
}

func (s *service) Tier(req TierRequest, resp *TierResponse) error {
	resp.Tier = api.FromTier(s.engine().ApprovalTier(req.Cost))
	return nil
}

func (s *service) Stats(_ StatsRequest, resp *StatsResponse) error {
	counts, err := s.engine().StageCounts(s.ctx)
	if err != nil {
		return err
	}
	resp.Counts = api.StageCountsDTO(counts)
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	events, next, err := s.daemon.Feed().Fetch(s.ctx, req.Since, req.Limit, req.Wait)
	if err != nil {
		return err
	}
	resp.Events = events
	resp.NextSince = next
	resp.FirstSequence = s.daemon.Feed().FirstSequence()
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.TestNotification(s.ctx); err != nil {
		return err
	}
	resp.Sent = true
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.Health(s.ctx)
	if err != nil {
		return err
	}
	resp.Health = api.FromHealth(health)
	return nil
}

func transitionDTO(result *engine.TransitionResult) api.Transition {
	if result == nil {
		return api.Transition{}
	}
	return api.Transition{
		Unit: api.FromUnit(result.Unit),
		From: string(result.From),
		To:   string(result.To),
	}
}
