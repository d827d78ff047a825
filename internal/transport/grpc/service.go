package grpc

import (
	"context"

	"google.golang.org/grpc"

	"playledger/internal/model"
)

const (
	ledgerServiceName = "playledger.v1.Ledger"
	eventServiceName  = "playledger.v1.EventService"

	publishMethod = "/" + eventServiceName + "/Publish"
)

// unary builds a method descriptor around a Server method, decoding the
// request with whichever codec the call negotiated.
func unary[Req, Res any](service, name string, call func(*Server, context.Context, *Req) (*Res, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var ledgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ledgerServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary[model.PlayRequest, model.PlayResult](ledgerServiceName, "Play", (*Server).Play),
		unary[model.MintRequest, model.MintResult](ledgerServiceName, "MintToday", (*Server).MintToday),
		unary[RecordRequest, model.Record](ledgerServiceName, "GetRecord", (*Server).GetRecord),
		unary[ParticipantRequest, model.LeaderboardEntry](ledgerServiceName, "GetBestScore", (*Server).GetBestScore),
		unary[LeaderboardRequest, LeaderboardResponse](ledgerServiceName, "GetLeaderboard", (*Server).GetLeaderboard),
		unary[Empty, TodayResponse](ledgerServiceName, "TodayDate", (*Server).TodayDate),
		unary[model.TransferRequest, Ack](ledgerServiceName, "Transfer", (*Server).Transfer),
		unary[model.ApproveRequest, Ack](ledgerServiceName, "Approve", (*Server).Approve),
		unary[BalanceRequest, BalanceResponse](ledgerServiceName, "GetBalance", (*Server).GetBalance),
		unary[AllowanceRequest, AllowanceResponse](ledgerServiceName, "GetAllowance", (*Server).GetAllowance),
		unary[AssetRequest, model.Asset](ledgerServiceName, "GetAsset", (*Server).GetAsset),
		unary[model.IssueRequest, Ack](ledgerServiceName, "Issue", (*Server).Issue),
		unary[model.TransferRequest, Ack](ledgerServiceName, "Withdraw", (*Server).Withdraw),
		unary[model.SetMintedRequest, Ack](ledgerServiceName, "SetMinted", (*Server).SetMinted),
		unary[model.AddressRequest, Ack](ledgerServiceName, "SetRewardAsset", (*Server).SetRewardAsset),
		unary[model.AddressRequest, Ack](ledgerServiceName, "DeployRewardAsset", (*Server).DeployRewardAsset),
		unary[model.IssuerRequest, Ack](ledgerServiceName, "SetIssuer", (*Server).SetIssuer),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "playledger/v1/ledger",
}

var eventServiceDesc = grpc.ServiceDesc{
	ServiceName: eventServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary[EventRequest, EventResponse](eventServiceName, "Publish", (*Server).Publish),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "playledger/v1/events",
}
