package handler

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
	"github.com/rl1809/eco-bazaar/internal/core/service"
)

const checkoutServiceName = "eco.v1.CheckoutService"

type AddCartLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type SetCartLineQuantityRequest struct {
	CartItemID int64 `json:"cart_item_id"`
	Quantity   int   `json:"quantity"`
}

type RemoveCartLineRequest struct {
	CartItemID int64 `json:"cart_item_id"`
}

type CheckoutRequest struct {
	// RequestID makes the checkout idempotent when set
	RequestID         string `json:"request_id"`
	ShippingAddressID *int64 `json:"shipping_address_id"`
}

type CartLineReply struct {
	Item    *cartItemResponse `json:"item,omitempty"`
	Removed bool              `json:"removed"`
}

type CheckoutReply struct {
	Order orderResponse `json:"order"`
}

type Empty struct{}

// CheckoutServer is the server side of eco.v1.CheckoutService.
type CheckoutServer interface {
	AddCartLine(context.Context, *AddCartLineRequest) (*CartLineReply, error)
	SetCartLineQuantity(context.Context, *SetCartLineQuantityRequest) (*CartLineReply, error)
	RemoveCartLine(context.Context, *RemoveCartLineRequest) (*Empty, error)
	Checkout(context.Context, *CheckoutRequest) (*CheckoutReply, error)
}

type GRPCHandler struct {
	carts  *service.CartService
	orders *service.OrderService
}

func NewGRPCHandler(carts *service.CartService, orders *service.OrderService) *GRPCHandler {
	return &GRPCHandler{carts: carts, orders: orders}
}

func (h *GRPCHandler) AddCartLine(ctx context.Context, req *AddCartLineRequest) (*CartLineReply, error) {
	customerID, err := grpcCustomer(ctx)
	if err != nil {
		return nil, err
	}

	item, err := h.carts.AddOrIncreaseCartLine(ctx, customerID, req.ProductID, req.Quantity)
	if err != nil {
		return nil, grpcError(err)
	}
	it := toCartItem(item)
	return &CartLineReply{Item: &it}, nil
}

func (h *GRPCHandler) SetCartLineQuantity(ctx context.Context, req *SetCartLineQuantityRequest) (*CartLineReply, error) {
	customerID, err := grpcCustomer(ctx)
	if err != nil {
		return nil, err
	}

	item, removed, err := h.carts.SetCartLineQuantity(ctx, customerID, req.CartItemID, req.Quantity)
	if err != nil {
		return nil, grpcError(err)
	}
	reply := &CartLineReply{Removed: removed}
	if !removed {
		it := toCartItem(item)
		reply.Item = &it
	}
	return reply, nil
}

func (h *GRPCHandler) RemoveCartLine(ctx context.Context, req *RemoveCartLineRequest) (*Empty, error) {
	customerID, err := grpcCustomer(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.carts.RemoveCartLine(ctx, customerID, req.CartItemID); err != nil {
		return nil, grpcError(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutReply, error) {
	customerID, err := grpcCustomer(ctx)
	if err != nil {
		return nil, err
	}

	var order domain.Order
	if key := strings.TrimSpace(req.RequestID); key != "" {
		order, err = h.orders.CheckoutOnce(ctx, key, customerID, req.ShippingAddressID)
	} else {
		order, err = h.orders.Checkout(ctx, customerID, req.ShippingAddressID)
	}
	if err != nil {
		return nil, grpcError(err)
	}
	return &CheckoutReply{Order: toOrder(order)}, nil
}

func grpcError(err error) error {
	m, _ := classify(err)
	return status.Error(m.code, m.message)
}

type actorCtxKey struct{}

func grpcCustomer(ctx context.Context) (int64, error) {
	actor, _ := ctx.Value(actorCtxKey{}).(domain.Actor)
	if actor.CustomerID == 0 || !service.CanAccess(actor, service.Resource{Kind: service.ResourceCart, CustomerID: actor.CustomerID}) {
		return 0, status.Error(codes.PermissionDenied, "caller has no customer profile")
	}
	return actor.CustomerID, nil
}

// AuthInterceptor authenticates the bearer token in the "authorization"
// metadata for every checkout service call.
func AuthInterceptor(accounts *service.AccountService, log *slog.Logger) grpc.UnaryServerInterceptor {
	prefix := "/" + checkoutServiceName + "/"

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		var token string
		for _, v := range md.Get("authorization") {
			if t, ok := strings.CutPrefix(v, "Bearer "); ok {
				token = strings.TrimSpace(t)
			}
		}
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		actor, err := accounts.Authenticate(ctx, token)
		if err != nil {
			if _, known := classify(err); !known {
				log.Error("grpc authentication failed", "method", info.FullMethod, "error", err)
			}
			return nil, grpcError(err)
		}

		resp, err := handler(context.WithValue(ctx, actorCtxKey{}, actor), req)
		if err != nil && status.Code(err) == codes.Internal {
			log.Error("grpc call failed", "method", info.FullMethod, "customer_id", actor.CustomerID)
		}
		return resp, err
	}
}

func RegisterCheckoutServer(s grpc.ServiceRegistrar, srv CheckoutServer) {
	s.RegisterService(&checkoutServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(CheckoutServer, context.Context, *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CheckoutServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + checkoutServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CheckoutServer), ctx, req.(*Req))
			})
		},
	}
}

var checkoutServiceDesc = grpc.ServiceDesc{
	ServiceName: checkoutServiceName,
	HandlerType: (*CheckoutServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("AddCartLine", func(s CheckoutServer, ctx context.Context, in *AddCartLineRequest) (any, error) {
			return s.AddCartLine(ctx, in)
		}),
		unaryHandler("SetCartLineQuantity", func(s CheckoutServer, ctx context.Context, in *SetCartLineQuantityRequest) (any, error) {
			return s.SetCartLineQuantity(ctx, in)
		}),
		unaryHandler("RemoveCartLine", func(s CheckoutServer, ctx context.Context, in *RemoveCartLineRequest) (any, error) {
			return s.RemoveCartLine(ctx, in)
		}),
		unaryHandler("Checkout", func(s CheckoutServer, ctx context.Context, in *CheckoutRequest) (any, error) {
			return s.Checkout(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eco/v1/checkout.proto",
}

// CheckoutClient calls eco.v1.CheckoutService with the JSON codec.
type CheckoutClient struct {
	cc grpc.ClientConnInterface
}

func NewCheckoutClient(cc grpc.ClientConnInterface) *CheckoutClient {
	return &CheckoutClient{cc: cc}
}

func (c *CheckoutClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+checkoutServiceName+"/"+method, in, out, opts...)
}

func (c *CheckoutClient) AddCartLine(ctx context.Context, in *AddCartLineRequest, opts ...grpc.CallOption) (*CartLineReply, error) {
	out := new(CartLineReply)
	if err := c.invoke(ctx, "AddCartLine", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CheckoutClient) SetCartLineQuantity(ctx context.Context, in *SetCartLineQuantityRequest, opts ...grpc.CallOption) (*CartLineReply, error) {
	out := new(CartLineReply)
	if err := c.invoke(ctx, "SetCartLineQuantity", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CheckoutClient) RemoveCartLine(ctx context.Context, in *RemoveCartLineRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, "RemoveCartLine", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CheckoutClient) Checkout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*CheckoutReply, error) {
	out := new(CheckoutReply)
	if err := c.invoke(ctx, "Checkout", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WithToken attaches a bearer token to an outgoing context.
func WithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}
