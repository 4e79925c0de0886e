// Package proto defines the gRPC service interface for the payroll
// flight gateway.
//
// In a full protoc workflow you would generate this with
// protoc-gen-go-grpc. This hand-written version keeps the project
// self-contained and lets the messages travel as JSON.
package proto

import (
	"context"

	"google.golang.org/grpc"
)

// PayrollFlightServer is the server-side interface for the service.
type PayrollFlightServer interface {
	// Put receives a metadata descriptor followed by streamed rows.
	Put(PayrollFlight_PutServer) error
	// Get answers a structured ticket with a stream of record batches.
	Get(*Ticket, PayrollFlight_GetServer) error
	// Do handles small request/reply actions such as list_files.
	Do(context.Context, *ActionRequest) (*ActionResult, error)
}

// PayrollFlightClient is the client-side interface for the service.
type PayrollFlightClient interface {
	Put(ctx context.Context, opts ...grpc.CallOption) (PayrollFlight_PutClient, error)
	Get(ctx context.Context, in *Ticket, opts ...grpc.CallOption) (PayrollFlight_GetClient, error)
	Do(ctx context.Context, in *ActionRequest, opts ...grpc.CallOption) (*ActionResult, error)
}

// ---- server registration ----

// ServiceDesc is the grpc.ServiceDesc for the PayrollFlight service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "payrollgate.PayrollFlight",
	HandlerType: (*PayrollFlightServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Do",
			Handler:    _PayrollFlight_Do_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Put",
			Handler:       _PayrollFlight_Put_Handler,
			ClientStreams: true,
		},
		{
			StreamName:    "Get",
			Handler:       _PayrollFlight_Get_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "proto/payrollgate.proto",
}

// RegisterPayrollFlightServer registers the server implementation with
// a gRPC server.
func RegisterPayrollFlightServer(s *grpc.Server, srv PayrollFlightServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func _PayrollFlight_Do_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ActionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(PayrollFlightServer).Do(ctx, in)
}

func _PayrollFlight_Put_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(PayrollFlightServer).Put(&payrollFlightPutServer{stream})
}

func _PayrollFlight_Get_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(Ticket)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PayrollFlightServer).Get(in, &payrollFlightGetServer{stream})
}

// PayrollFlight_PutServer is the server view of a Put stream.
type PayrollFlight_PutServer interface {
	Recv() (*PutFrame, error)
	SendAndClose(*PutResult) error
	grpc.ServerStream
}

type payrollFlightPutServer struct {
	grpc.ServerStream
}

func (x *payrollFlightPutServer) Recv() (*PutFrame, error) {
	m := new(PutFrame)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (x *payrollFlightPutServer) SendAndClose(m *PutResult) error {
	return x.ServerStream.SendMsg(m)
}

// PayrollFlight_GetServer is the server view of a Get stream.
type PayrollFlight_GetServer interface {
	Send(*RecordBatch) error
	grpc.ServerStream
}

type payrollFlightGetServer struct {
	grpc.ServerStream
}

func (x *payrollFlightGetServer) Send(m *RecordBatch) error {
	return x.ServerStream.SendMsg(m)
}

// ---- client implementation ----

type payrollFlightClient struct {
	cc grpc.ClientConnInterface
}

// NewPayrollFlightClient creates a new PayrollFlight gRPC client. Pair
// it with grpc.CallContentSubtype(CodecName) so the JSON codec is used.
func NewPayrollFlightClient(cc grpc.ClientConnInterface) PayrollFlightClient {
	return &payrollFlightClient{cc: cc}
}

// PayrollFlight_PutClient is the client view of a Put stream.
type PayrollFlight_PutClient interface {
	Send(*PutFrame) error
	CloseAndRecv() (*PutResult, error)
	grpc.ClientStream
}

type payrollFlightPutClient struct {
	grpc.ClientStream
}

func (x *payrollFlightPutClient) Send(m *PutFrame) error {
	return x.ClientStream.SendMsg(m)
}

func (x *payrollFlightPutClient) CloseAndRecv() (*PutResult, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(PutResult)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *payrollFlightClient) Put(ctx context.Context, opts ...grpc.CallOption) (PayrollFlight_PutClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/payrollgate.PayrollFlight/Put", opts...)
	if err != nil {
		return nil, err
	}
	return &payrollFlightPutClient{stream}, nil
}

// PayrollFlight_GetClient is the client view of a Get stream.
type PayrollFlight_GetClient interface {
	Recv() (*RecordBatch, error)
	grpc.ClientStream
}

type payrollFlightGetClient struct {
	grpc.ClientStream
}

func (x *payrollFlightGetClient) Recv() (*RecordBatch, error) {
	m := new(RecordBatch)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *payrollFlightClient) Get(ctx context.Context, in *Ticket, opts ...grpc.CallOption) (PayrollFlight_GetClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[1], "/payrollgate.PayrollFlight/Get", opts...)
	if err != nil {
		return nil, err
	}
	x := &payrollFlightGetClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *payrollFlightClient) Do(ctx context.Context, in *ActionRequest, opts ...grpc.CallOption) (*ActionResult, error) {
	out := new(ActionResult)
	err := c.cc.Invoke(ctx, "/payrollgate.PayrollFlight/Do", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
