package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"playledger/internal/auth"
	"playledger/internal/ledger"
	"playledger/internal/metrics"
	"playledger/internal/model"
	"playledger/internal/repository"
	"playledger/internal/service"
)

const (
	// AuthorizationMetadataKey carries "Bearer <jwt>" on every ledger call.
	// The token subject is the caller.
	AuthorizationMetadataKey = "authorization"
	// BusSecretMetadataKey carries the shared secret on EventService calls.
	BusSecretMetadataKey = "x-bus-secret"
)

type Server struct {
	svc       service.LedgerService
	srv       *grpc.Server
	addr      string
	authn     *auth.Authenticator
	busSecret string
	metrics   *metrics.LedgerMetrics
}

// NewServer serves the Ledger service to JWT-authenticated callers. The
// EventService is registered only when busSecret is set, and then only
// accepts calls presenting that secret.
func NewServer(addr string, svc service.LedgerService, authn *auth.Authenticator, busSecret string) *Server {
	s := &Server{svc: svc, addr: addr, authn: authn, busSecret: busSecret, metrics: metrics.Ledger()}
	s.srv = grpc.NewServer(grpc.ChainUnaryInterceptor(s.observe, s.authenticate))
	s.srv.RegisterService(&ledgerServiceDesc, s)
	if busSecret != "" {
		s.srv.RegisterService(&eventServiceDesc, s)
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	slog.Info("gRPC server is running", "addr", s.addr)
	return s.srv.Serve(lis)
}

func (s *Server) Stop(ctx context.Context) error {
	s.srv.GracefulStop()
	return nil
}

func (s *Server) Play(ctx context.Context, req *model.PlayRequest) (*model.PlayResult, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.Play(ctx, caller, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return res, nil
}

func (s *Server) MintToday(ctx context.Context, req *model.MintRequest) (*model.MintResult, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.MintToday(ctx, caller, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return res, nil
}

func (s *Server) GetRecord(ctx context.Context, req *RecordRequest) (*model.Record, error) {
	day := req.Day
	if req.Today {
		day = s.svc.TodayDate(ctx)
	}
	rec, err := s.svc.Record(ctx, req.Participant, day)
	if err != nil {
		return nil, toStatus(err)
	}
	return rec, nil
}

func (s *Server) GetBestScore(ctx context.Context, req *ParticipantRequest) (*model.LeaderboardEntry, error) {
	score, err := s.svc.BestScore(ctx, req.Participant)
	if err != nil {
		return nil, toStatus(err)
	}
	return &model.LeaderboardEntry{Participant: req.Participant, BestScore: score}, nil
}

func (s *Server) GetLeaderboard(ctx context.Context, req *LeaderboardRequest) (*LeaderboardResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 10
	}
	if limit < 0 || limit > 100 {
		return nil, status.Error(codes.InvalidArgument, "limit must be between 1 and 100")
	}
	entries, err := s.svc.Leaderboard(ctx, limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LeaderboardResponse{Entries: entries}, nil
}

func (s *Server) TodayDate(ctx context.Context, _ *Empty) (*TodayResponse, error) {
	return &TodayResponse{Day: s.svc.TodayDate(ctx)}, nil
}

func (s *Server) Transfer(ctx context.Context, req *model.TransferRequest) (*Ack, error) {
	return s.withCaller(ctx, func(caller model.Address) error {
		return s.svc.Transfer(ctx, caller, *req)
	})
}

func (s *Server) Approve(ctx context.Context, req *model.ApproveRequest) (*Ack, error) {
	return s.withCaller(ctx, func(caller model.Address) error {
		return s.svc.Approve(ctx, caller, *req)
	})
}

func (s *Server) GetBalance(ctx context.Context, req *BalanceRequest) (*BalanceResponse, error) {
	bal, err := s.svc.GetBalance(ctx, req.Account)
	if err != nil {
		return nil, toStatus(err)
	}
	return &BalanceResponse{Account: req.Account, Balance: bal}, nil
}

func (s *Server) GetAllowance(ctx context.Context, req *AllowanceRequest) (*AllowanceResponse, error) {
	amount, err := s.svc.GetAllowance(ctx, req.Owner, req.Spender)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AllowanceResponse{Owner: req.Owner, Spender: req.Spender, Allowance: amount}, nil
}

func (s *Server) GetAsset(ctx context.Context, req *AssetRequest) (*model.Asset, error) {
	asset, err := s.svc.GetAsset(ctx, req.Contract, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return asset, nil
}

func (s *Server) Issue(ctx context.Context, req *model.IssueRequest) (*Ack, error) {
	return s.withCaller(ctx, func(caller model.Address) error {
		return s.svc.Issue(ctx, caller, *req)
	})
}

func (s *Server) Withdraw(ctx context.Context, req *model.TransferRequest) (*Ack, error) {
	return s.withCaller(ctx, func(caller model.Address) error {
		return s.svc.Withdraw(ctx, caller, *req)
	})
}

func (s *Server) SetMinted(ctx context.Context, req *model.SetMintedRequest) (*Ack, error) {
	return s.withCaller(ctx, func(caller model.Address) error {
		return s.svc.SetMinted(ctx, caller, *req)
	})
}

func (s *Server) SetRewardAsset(ctx context.Context, req *model.AddressRequest) (*Ack, error) {
	return s.withCaller(ctx, func(caller model.Address) error {
		return s.svc.SetRewardAsset(ctx, caller, req.Address)
	})
}

func (s *Server) DeployRewardAsset(ctx context.Context, req *model.AddressRequest) (*Ack, error) {
	return s.withCaller(ctx, func(caller model.Address) error {
		return s.svc.DeployRewardAsset(ctx, caller, req.Address)
	})
}

func (s *Server) SetIssuer(ctx context.Context, req *model.IssuerRequest) (*Ack, error) {
	return s.withCaller(ctx, func(caller model.Address) error {
		return s.svc.SetIssuer(ctx, caller, *req)
	})
}

// Publish is the EventService endpoint used when BusProvider is "grpc": the
// server acts as the worker and projects ledger events on receipt.
func (s *Server) Publish(ctx context.Context, req *EventRequest) (*EventResponse, error) {
	if req.Topic != repository.EventsTopic {
		return &EventResponse{Success: false, ErrorMessage: fmt.Sprintf("unknown topic %q", req.Topic)}, nil
	}
	var ev model.Event
	if err := json.Unmarshal(req.Payload, &ev); err != nil {
		return &EventResponse{Success: false, ErrorMessage: err.Error()}, nil
	}
	if err := s.svc.SyncEvent(ctx, ev); err != nil {
		slog.Error("grpc: failed to sync event", "seq", ev.Seq, "type", ev.Type, "error", err)
		return &EventResponse{Success: false, ErrorMessage: err.Error()}, nil
	}
	return &EventResponse{Success: true}, nil
}

func (s *Server) withCaller(ctx context.Context, fn func(model.Address) error) (*Ack, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(caller); err != nil {
		return nil, toStatus(err)
	}
	return &Ack{Status: "success"}, nil
}

func (s *Server) observe(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.metrics.ObserveRequest("grpc", info.FullMethod, status.Code(err).String(), time.Since(start).Seconds())
	return resp, err
}

// authenticate resolves the caller from the bearer token, or checks the bus
// secret for EventService calls.
func (s *Server) authenticate(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if info.FullMethod == publishMethod {
		if err := auth.CheckSecret(s.busSecret, firstMetadata(ctx, BusSecretMetadataKey)); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(ctx, req)
	}
	if s.authn == nil {
		return nil, status.Error(codes.Unauthenticated, "authentication is not configured")
	}
	caller, err := s.authn.VerifyHeader(firstMetadata(ctx, AuthorizationMetadataKey))
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	return handler(auth.WithCaller(ctx, caller), req)
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func callerFrom(ctx context.Context) (model.Address, error) {
	if caller, ok := auth.CallerFrom(ctx); ok {
		return caller, nil
	}
	return "", status.Error(codes.Unauthenticated, "unauthenticated caller")
}

// toStatus maps ledger errors to gRPC codes. The stable ledger code prefixes
// the message so clients can branch on it.
func toStatus(err error) error {
	code := codes.Internal
	switch ledger.ErrorCode(err) {
	case ledger.CodeUnauthorized:
		code = codes.PermissionDenied
	case ledger.CodeNotFound:
		code = codes.NotFound
	case ledger.CodeAlreadyMinted:
		code = codes.AlreadyExists
	case ledger.CodeInsufficientBalance, ledger.CodeInsufficientAllowance, ledger.CodePaymentRequired:
		code = codes.FailedPrecondition
	case ledger.CodeInvalidAmount, ledger.CodeInvalidAddress:
		code = codes.InvalidArgument
	}
	if errors.Is(err, context.Canceled) {
		code = codes.Canceled
	}
	return status.Error(code, ledger.ErrorCode(err)+": "+err.Error())
}
