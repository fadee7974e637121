package walletv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "teawallet.wallet.v1.WalletService"

	WalletService_GetBalance_FullMethodName            = "/" + ServiceName + "/GetBalance"
	WalletService_ListTeamWallets_FullMethodName       = "/" + ServiceName + "/ListTeamWallets"
	WalletService_GetTeamStats_FullMethodName          = "/" + ServiceName + "/GetTeamStats"
	WalletService_CollectFromWallet_FullMethodName     = "/" + ServiceName + "/CollectFromWallet"
	WalletService_ListTransactions_FullMethodName      = "/" + ServiceName + "/ListTransactions"
	WalletService_ProvisionWallet_FullMethodName       = "/" + ServiceName + "/ProvisionWallet"
	WalletService_SetWalletActive_FullMethodName       = "/" + ServiceName + "/SetWalletActive"
	WalletService_RecordFieldCollection_FullMethodName = "/" + ServiceName + "/RecordFieldCollection"
	WalletService_ListFieldCollections_FullMethodName  = "/" + ServiceName + "/ListFieldCollections"
	WalletService_ReconstructWallet_FullMethodName     = "/" + ServiceName + "/ReconstructWallet"
)

// WalletServiceServer is the server API for WalletService.
type WalletServiceServer interface {
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	ListTeamWallets(context.Context, *ListTeamWalletsRequest) (*ListTeamWalletsResponse, error)
	GetTeamStats(context.Context, *GetTeamStatsRequest) (*GetTeamStatsResponse, error)
	CollectFromWallet(context.Context, *CollectFromWalletRequest) (*CollectFromWalletResponse, error)
	ListTransactions(context.Context, *ListTransactionsRequest) (*ListTransactionsResponse, error)
	ProvisionWallet(context.Context, *ProvisionWalletRequest) (*ProvisionWalletResponse, error)
	SetWalletActive(context.Context, *SetWalletActiveRequest) (*SetWalletActiveResponse, error)
	RecordFieldCollection(context.Context, *RecordFieldCollectionRequest) (*RecordFieldCollectionResponse, error)
	ListFieldCollections(context.Context, *ListFieldCollectionsRequest) (*ListFieldCollectionsResponse, error)
	ReconstructWallet(context.Context, *ReconstructWalletRequest) (*ReconstructWalletResponse, error)
	mustEmbedUnimplementedWalletServiceServer()
}

// UnimplementedWalletServiceServer must be embedded by every implementation.
type UnimplementedWalletServiceServer struct{}

func (UnimplementedWalletServiceServer) GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBalance not implemented")
}

func (UnimplementedWalletServiceServer) ListTeamWallets(context.Context, *ListTeamWalletsRequest) (*ListTeamWalletsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListTeamWallets not implemented")
}

func (UnimplementedWalletServiceServer) GetTeamStats(context.Context, *GetTeamStatsRequest) (*GetTeamStatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTeamStats not implemented")
}

func (UnimplementedWalletServiceServer) CollectFromWallet(context.Context, *CollectFromWalletRequest) (*CollectFromWalletResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CollectFromWallet not implemented")
}

func (UnimplementedWalletServiceServer) ListTransactions(context.Context, *ListTransactionsRequest) (*ListTransactionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListTransactions not implemented")
}

func (UnimplementedWalletServiceServer) ProvisionWallet(context.Context, *ProvisionWalletRequest) (*ProvisionWalletResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ProvisionWallet not implemented")
}

func (UnimplementedWalletServiceServer) SetWalletActive(context.Context, *SetWalletActiveRequest) (*SetWalletActiveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetWalletActive not implemented")
}

func (UnimplementedWalletServiceServer) RecordFieldCollection(context.Context, *RecordFieldCollectionRequest) (*RecordFieldCollectionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RecordFieldCollection not implemented")
}

func (UnimplementedWalletServiceServer) ListFieldCollections(context.Context, *ListFieldCollectionsRequest) (*ListFieldCollectionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListFieldCollections not implemented")
}

func (UnimplementedWalletServiceServer) ReconstructWallet(context.Context, *ReconstructWalletRequest) (*ReconstructWalletResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReconstructWallet not implemented")
}

func (UnimplementedWalletServiceServer) mustEmbedUnimplementedWalletServiceServer() {}

// RegisterWalletServiceServer attaches srv to a gRPC server.
func RegisterWalletServiceServer(registrar grpc.ServiceRegistrar, srv WalletServiceServer) {
	registrar.RegisterService(&WalletService_ServiceDesc, srv)
}

func unaryHandler[Request any, Response any](fullMethod string, call func(WalletServiceServer, context.Context, *Request) (*Response, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Request)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(WalletServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, request any) (any, error) {
			return call(server, ctx, request.(*Request))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// WalletService_ServiceDesc describes WalletService for grpc.Server.
var WalletService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WalletServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBalance", Handler: unaryHandler(WalletService_GetBalance_FullMethodName, WalletServiceServer.GetBalance)},
		{MethodName: "ListTeamWallets", Handler: unaryHandler(WalletService_ListTeamWallets_FullMethodName, WalletServiceServer.ListTeamWallets)},
		{MethodName: "GetTeamStats", Handler: unaryHandler(WalletService_GetTeamStats_FullMethodName, WalletServiceServer.GetTeamStats)},
		{MethodName: "CollectFromWallet", Handler: unaryHandler(WalletService_CollectFromWallet_FullMethodName, WalletServiceServer.CollectFromWallet)},
		{MethodName: "ListTransactions", Handler: unaryHandler(WalletService_ListTransactions_FullMethodName, WalletServiceServer.ListTransactions)},
		{MethodName: "ProvisionWallet", Handler: unaryHandler(WalletService_ProvisionWallet_FullMethodName, WalletServiceServer.ProvisionWallet)},
		{MethodName: "SetWalletActive", Handler: unaryHandler(WalletService_SetWalletActive_FullMethodName, WalletServiceServer.SetWalletActive)},
		{MethodName: "RecordFieldCollection", Handler: unaryHandler(WalletService_RecordFieldCollection_FullMethodName, WalletServiceServer.RecordFieldCollection)},
		{MethodName: "ListFieldCollections", Handler: unaryHandler(WalletService_ListFieldCollections_FullMethodName, WalletServiceServer.ListFieldCollections)},
		{MethodName: "ReconstructWallet", Handler: unaryHandler(WalletService_ReconstructWallet_FullMethodName, WalletServiceServer.ReconstructWallet)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "teawallet/wallet/v1",
}

// WalletServiceClient is the client API for WalletService.
type WalletServiceClient interface {
	GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error)
	ListTeamWallets(ctx context.Context, in *ListTeamWalletsRequest, opts ...grpc.CallOption) (*ListTeamWalletsResponse, error)
	GetTeamStats(ctx context.Context, in *GetTeamStatsRequest, opts ...grpc.CallOption) (*GetTeamStatsResponse, error)
	CollectFromWallet(ctx context.Context, in *CollectFromWalletRequest, opts ...grpc.CallOption) (*CollectFromWalletResponse, error)
	ListTransactions(ctx context.Context, in *ListTransactionsRequest, opts ...grpc.CallOption) (*ListTransactionsResponse, error)
	ProvisionWallet(ctx context.Context, in *ProvisionWalletRequest, opts ...grpc.CallOption) (*ProvisionWalletResponse, error)
	SetWalletActive(ctx context.Context, in *SetWalletActiveRequest, opts ...grpc.CallOption) (*SetWalletActiveResponse, error)
	RecordFieldCollection(ctx context.Context, in *RecordFieldCollectionRequest, opts ...grpc.CallOption) (*RecordFieldCollectionResponse, error)
	ListFieldCollections(ctx context.Context, in *ListFieldCollectionsRequest, opts ...grpc.CallOption) (*ListFieldCollectionsResponse, error)
	ReconstructWallet(ctx context.Context, in *ReconstructWalletRequest, opts ...grpc.CallOption) (*ReconstructWalletResponse, error)
}

type walletServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewWalletServiceClient returns a client that speaks the structjson codec.
func NewWalletServiceClient(cc grpc.ClientConnInterface) WalletServiceClient {
	return &walletServiceClient{cc: cc}
}

func invoke[Response any](ctx context.Context, cc grpc.ClientConnInterface, fullMethod string, in any, opts []grpc.CallOption) (*Response, error) {
	out := new(Response)
	callOptions := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod, in, out, callOptions...); err != nil {
		return nil, err
	}
	return out, nil
}

func (client *walletServiceClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	return invoke[GetBalanceResponse](ctx, client.cc, WalletService_GetBalance_FullMethodName, in, opts)
}

func (client *walletServiceClient) ListTeamWallets(ctx context.Context, in *ListTeamWalletsRequest, opts ...grpc.CallOption) (*ListTeamWalletsResponse, error) {
	return invoke[ListTeamWalletsResponse](ctx, client.cc, WalletService_ListTeamWallets_FullMethodName, in, opts)
}

func (client *walletServiceClient) GetTeamStats(ctx context.Context, in *GetTeamStatsRequest, opts ...grpc.CallOption) (*GetTeamStatsResponse, error) {
	return invoke[GetTeamStatsResponse](ctx, client.cc, WalletService_GetTeamStats_FullMethodName, in, opts)
}

func (client *walletServiceClient) CollectFromWallet(ctx context.Context, in *CollectFromWalletRequest, opts ...grpc.CallOption) (*CollectFromWalletResponse, error) {
	return invoke[CollectFromWalletResponse](ctx, client.cc, WalletService_CollectFromWallet_FullMethodName, in, opts)
}

func (client *walletServiceClient) ListTransactions(ctx context.Context, in *ListTransactionsRequest, opts ...grpc.CallOption) (*ListTransactionsResponse, error) {
	return invoke[ListTransactionsResponse](ctx, client.cc, WalletService_ListTransactions_FullMethodName, in, opts)
}

func (client *walletServiceClient) ProvisionWallet(ctx context.Context, in *ProvisionWalletRequest, opts ...grpc.CallOption) (*ProvisionWalletResponse, error) {
	return invoke[ProvisionWalletResponse](ctx, client.cc, WalletService_ProvisionWallet_FullMethodName, in, opts)
}

func (client *walletServiceClient) SetWalletActive(ctx context.Context, in *SetWalletActiveRequest, opts ...grpc.CallOption) (*SetWalletActiveResponse, error) {
	return invoke[SetWalletActiveResponse](ctx, client.cc, WalletService_SetWalletActive_FullMethodName, in, opts)
}

func (client *walletServiceClient) RecordFieldCollection(ctx context.Context, in *RecordFieldCollectionRequest, opts ...grpc.CallOption) (*RecordFieldCollectionResponse, error) {
	return invoke[RecordFieldCollectionResponse](ctx, client.cc, WalletService_RecordFieldCollection_FullMethodName, in, opts)
}

func (client *walletServiceClient) ListFieldCollections(ctx context.Context, in *ListFieldCollectionsRequest, opts ...grpc.CallOption) (*ListFieldCollectionsResponse, error) {
	return invoke[ListFieldCollectionsResponse](ctx, client.cc, WalletService_ListFieldCollections_FullMethodName, in, opts)
}

func (client *walletServiceClient) ReconstructWallet(ctx context.Context, in *ReconstructWalletRequest, opts ...grpc.CallOption) (*ReconstructWalletResponse, error) {
	return invoke[ReconstructWalletResponse](ctx, client.cc, WalletService_ReconstructWallet_FullMethodName, in, opts)
}
