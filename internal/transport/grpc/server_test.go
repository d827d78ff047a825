package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"playledger/internal/auth"
	"playledger/internal/ledger"
	"playledger/internal/model"
	"playledger/internal/repository"
	"playledger/internal/service"
)

// mockService serves the ledger from memory and records synced events.
type mockService struct {
	service.LedgerService
	synced  []model.Event
	syncErr error
}

func (m *mockService) SyncEvent(ctx context.Context, event model.Event) error {
	m.synced = append(m.synced, event)
	return m.syncErr
}

func newMockService(t *testing.T) (*mockService, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.New(ledger.Config{
		Admin:         "admin",
		Store:         "store",
		RewardAsset:   "asset",
		Fee:           ledger.Units(10),
		InitialSupply: ledger.Units(1000),
		Clock:         func() time.Time { return time.Date(2024, 6, 22, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return &mockService{LedgerService: repository.NewLedgerRepo(l, nil, nil)}, l
}

// startServer serves s over an in-memory listener and returns a client conn.
func startServer(t *testing.T, s *Server) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.srv.Serve(lis) }()
	t.Cleanup(s.srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

const (
	testSecret = "test-secret"
	busSecret  = "bus-secret"
)

func newTestServer(svc service.LedgerService, secret string) *Server {
	return NewServer("bufnet", svc, auth.NewAuthenticator(testSecret, ""), secret)
}

func signToken(t *testing.T, secret string, subject model.Address) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   string(subject),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// invokeWith calls a Ledger method with the given outgoing metadata pairs.
func invokeWith(t *testing.T, conn *grpc.ClientConn, method string, req, res any, kv ...string) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if len(kv) > 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, kv...)
	}
	return conn.Invoke(ctx, "/"+ledgerServiceName+"/"+method, req, res)
}

// invoke calls a Ledger method as caller, authenticated with a valid token.
func invoke(t *testing.T, conn *grpc.ClientConn, caller model.Address, method string, req, res any) error {
	t.Helper()
	return invokeWith(t, conn, method, req, res,
		AuthorizationMetadataKey, "Bearer "+signToken(t, testSecret, caller))
}

func TestServer_Publish(t *testing.T) {
	svc, _ := newMockService(t)
	server := &Server{svc: svc}

	event := model.Event{Seq: 7, Type: model.EventTokenTransferred, From: "x", To: "y", Amount: "5"}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	res, err := server.Publish(context.Background(), &EventRequest{Topic: repository.EventsTopic, Payload: payload})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, svc.synced, 1)
	require.Equal(t, uint64(7), svc.synced[0].Seq)

	res, err = server.Publish(context.Background(), &EventRequest{Topic: "other.topic", Payload: payload})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Len(t, svc.synced, 1)

	svc.syncErr = errors.New("db down")
	res, err = server.Publish(context.Background(), &EventRequest{Topic: repository.EventsTopic, Payload: payload})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "db down", res.ErrorMessage)
}

func TestServer_PlayOverTheWire(t *testing.T) {
	svc, _ := newMockService(t)
	conn := startServer(t, newTestServer(svc, ""))

	var first model.PlayResult
	require.NoError(t, invoke(t, conn, "x", "Play", &model.PlayRequest{Mood: "Hope", Quote: "Q1", DataURI: "uri1", Score: 100}, &first))
	require.False(t, first.FeeCharged)
	require.Equal(t, uint64(100), first.Record.Score)

	var replay model.PlayResult
	err := invoke(t, conn, "x", "Play", &model.PlayRequest{Mood: "Joy", Score: 5}, &replay)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
	require.Contains(t, status.Convert(err).Message(), ledger.CodeInsufficientAllowance)

	var rec model.Record
	require.NoError(t, invoke(t, conn, "y", "GetRecord", &RecordRequest{Participant: "x", Today: true}, &rec))
	require.Equal(t, "Hope", rec.Mood)

	var mint model.MintResult
	require.NoError(t, invoke(t, conn, "x", "MintToday", &model.MintRequest{MetadataURI: "meta"}, &mint))
	require.Equal(t, uint64(1), mint.AssetID)

	err = invoke(t, conn, "x", "MintToday", &model.MintRequest{MetadataURI: "meta"}, &mint)
	require.Equal(t, codes.AlreadyExists, status.Code(err))

	var asset model.Asset
	require.NoError(t, invoke(t, conn, "y", "GetAsset", &AssetRequest{ID: 1}, &asset))
	require.Equal(t, model.Address("x"), asset.Owner)
}

func TestServer_CallerAndAuthorization(t *testing.T) {
	svc, l := newMockService(t)
	conn := startServer(t, newTestServer(svc, ""))

	var ack Ack
	// A bare caller header is not an identity.
	err := invokeWith(t, conn, "Issue", &model.IssueRequest{To: "mallory", Amount: ledger.Units(5000).Dec()}, &ack,
		"x-caller-id", "admin")
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	require.True(t, l.Token.BalanceOf("mallory").IsZero())

	err = invokeWith(t, conn, "Issue", &model.IssueRequest{To: "mallory", Amount: "1"}, &ack,
		AuthorizationMetadataKey, "Bearer "+signToken(t, "forged-secret", "admin"))
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	// The token subject wins over any caller header.
	err = invokeWith(t, conn, "Issue", &model.IssueRequest{To: "x", Amount: "1"}, &ack,
		AuthorizationMetadataKey, "Bearer "+signToken(t, testSecret, "x"), "x-caller-id", "admin")
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	var bal BalanceResponse
	err = invokeWith(t, conn, "GetBalance", &BalanceRequest{Account: "admin"}, &bal)
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	err = invoke(t, conn, "x", "Issue", &model.IssueRequest{To: "x", Amount: "1"}, &ack)
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	err = invoke(t, conn, "admin", "Issue", &model.IssueRequest{To: "x", Amount: "0"}, &ack)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	require.NoError(t, invoke(t, conn, "admin", "Transfer", &model.TransferRequest{To: "x", Amount: ledger.Units(3).Dec()}, &ack))
	require.Equal(t, "success", ack.Status)

	require.NoError(t, invoke(t, conn, "x", "GetBalance", &BalanceRequest{Account: "x"}, &bal))
	require.Equal(t, ledger.Units(3).Dec(), bal.Balance)
	require.Equal(t, ledger.Units(3), l.Token.BalanceOf("x"))

	err = invoke(t, conn, "admin", "SetMinted", &model.SetMintedRequest{Participant: "x", Day: l.Store.TodayDate()}, &ack)
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestGrpcBus_PublishesToEventService(t *testing.T) {
	svc, _ := newMockService(t)
	conn := startServer(t, newTestServer(svc, busSecret))

	payload, err := json.Marshal(model.Event{Seq: 1, Type: model.EventTokenIssued, To: "admin", Amount: "1"})
	require.NoError(t, err)
	require.NoError(t, newGrpcBus(conn, busSecret).Publish(repository.EventsTopic, payload))
	require.Len(t, svc.synced, 1)

	require.Error(t, newGrpcBus(conn, busSecret).Publish("unknown", payload))

	err = newGrpcBus(conn, "guess").Publish(repository.EventsTopic, payload)
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	require.Len(t, svc.synced, 1)
}

func TestEventServiceNotServedWithoutSecret(t *testing.T) {
	svc, _ := newMockService(t)
	conn := startServer(t, newTestServer(svc, ""))

	payload, err := json.Marshal(model.Event{Seq: 1, Type: model.EventTokenIssued, To: "mallory", Amount: "1"})
	require.NoError(t, err)
	err = newGrpcBus(conn, "").Publish(repository.EventsTopic, payload)
	require.Equal(t, codes.Unimplemented, status.Code(err))
	require.Empty(t, svc.synced)
}
