package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/proto"
)

func TestCodec_JSON(t *testing.T) {
	c := Codec{}
	assert.Equal(t, "json", c.Name())

	in := &UpsertRequest{Prompt: Prompt{ID: "p1", Content: "hi", UpdatedAt: 42, IsActive: true, Tags: []string{"a"}}}
	b, err := c.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"updatedAt":42`)

	var out UpsertRequest
	require.NoError(t, c.Unmarshal(b, &out))
	assert.Equal(t, *in, out)
}

func TestCodec_ProtoMessagesStayBinary(t *testing.T) {
	c := Codec{}
	in := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}

	b, err := c.Marshal(in)
	require.NoError(t, err)
	want, err := proto.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, want, b)

	out := &healthpb.HealthCheckResponse{}
	require.NoError(t, c.Unmarshal(b, out))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, out.GetStatus())
}

func TestCodec_UnmarshalError(t *testing.T) {
	var out LoginResponse
	err := Codec{}.Unmarshal([]byte("{"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json codec")
}
