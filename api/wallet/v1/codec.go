package walletv1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// CodecName is the gRPC content subtype of WalletService messages. Each
// message is carried on the wire as a google.protobuf.Struct.
const CodecName = "structjson"

func init() {
	encoding.RegisterCodec(structCodec{})
}

type structCodec struct{}

func (structCodec) Name() string {
	return CodecName
}

func (structCodec) Marshal(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("walletv1 marshal %T: %w", value, err)
	}
	message := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, message); err != nil {
		return nil, fmt.Errorf("walletv1 marshal %T: %w", value, err)
	}
	return proto.Marshal(message)
}

func (structCodec) Unmarshal(data []byte, value any) error {
	message := &structpb.Struct{}
	if err := proto.Unmarshal(data, message); err != nil {
		return fmt.Errorf("walletv1 unmarshal %T: %w", value, err)
	}
	raw, err := protojson.Marshal(message)
	if err != nil {
		return fmt.Errorf("walletv1 unmarshal %T: %w", value, err)
	}
	if err := json.Unmarshal(raw, value); err != nil {
		return fmt.Errorf("walletv1 unmarshal %T: %w", value, err)
	}
	return nil
}
