package cast

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/buger/jsonparser"
	"github.com/gogo/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pb "github.com/stream2cast/stream2cast/cast/proto"
)

const namespaceHeartbeat = "urn:x-cast:com.google.cast.tp.heartbeat"

func readFrame(t *testing.T, r io.Reader) *pb.CastMessage {
	t.Helper()
	var length uint32
	require.NoError(t, binary.Read(r, binary.BigEndian, &length))
	data := make([]byte, length)
	_, err := io.ReadFull(r, data)
	require.NoError(t, err)
	msg := &pb.CastMessage{}
	require.NoError(t, proto.Unmarshal(data, msg))
	return msg
}

func writeFrame(t *testing.T, w io.Writer, source, destination, namespace, payload string) {
	t.Helper()
	data, err := proto.Marshal(&pb.CastMessage{
		ProtocolVersion: pb.CastMessage_CASTV2_1_0.Enum(),
		SourceId:        &source,
		DestinationId:   &destination,
		Namespace:       &namespace,
		PayloadType:     pb.CastMessage_STRING.Enum(),
		PayloadUtf8:     &payload,
	})
	require.NoError(t, err)
	require.NoError(t, binary.Write(w, binary.BigEndian, uint32(len(data))))
	_, err = w.Write(data)
	require.NoError(t, err)
}

func TestSendWritesLengthPrefixedFrame(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	c := NewConnection()
	c.attach(local)
	defer c.Close()

	errc := make(chan error, 1)
	go func() {
		payload := GetStatusHeader
		errc <- c.Send(7, &payload, "sender-0", "receiver-0", "urn:x-cast:com.google.cast.receiver")
	}()

	msg := readFrame(t, remote)
	require.NoError(t, <-errc)

	assert.Equal(t, "sender-0", msg.GetSourceId())
	assert.Equal(t, "receiver-0", msg.GetDestinationId())
	assert.Equal(t, "urn:x-cast:com.google.cast.receiver", msg.GetNamespace())
	assert.Equal(t, pb.CastMessage_STRING, msg.GetPayloadType())

	payload := []byte(msg.GetPayloadUtf8())
	messageType, _ := jsonparser.GetString(payload, "type")
	requestID, _ := jsonparser.GetInt(payload, "requestId")
	assert.Equal(t, "GET_STATUS", messageType)
	assert.EqualValues(t, 7, requestID)
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	c := NewConnection()
	c.attach(local)
	defer c.Close()

	go writeFrame(t, remote, "receiver-0", "sender-0", namespaceHeartbeat, `{"type":"PING"}`)

	msg := readFrame(t, remote)
	messageType, _ := jsonparser.GetString([]byte(msg.GetPayloadUtf8()), "type")
	assert.Equal(t, "PONG", messageType)
	assert.Equal(t, "sender-0", msg.GetSourceId())
	assert.Equal(t, "receiver-0", msg.GetDestinationId())
	assert.Equal(t, namespaceHeartbeat, msg.GetNamespace())

	select {
	case m := <-c.MsgChan():
		t.Fatalf("ping should not be relayed, got %v", m)
	default:
	}
}

func TestMessagesAreRelayed(t *testing.T) {
	local, remote := net.Pipe()
	c := NewConnection()
	c.attach(local)
	defer c.Close()

	go writeFrame(t, remote, "receiver-0", "sender-0", "urn:x-cast:com.google.cast.receiver", `{"type":"RECEIVER_STATUS","requestId":3}`)

	select {
	case msg := <-c.MsgChan():
		requestID, _ := jsonparser.GetInt([]byte(msg.GetPayloadUtf8()), "requestId")
		assert.EqualValues(t, 3, requestID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for relayed message")
	}

	// The message channel is closed once the remote end goes away.
	remote.Close()
	select {
	case _, ok := <-c.MsgChan():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("message channel was not closed")
	}
}

func TestLocalAddr(t *testing.T) {
	c := NewConnection()
	_, err := c.LocalAddr()
	assert.ErrorIs(t, err, ErrNotConnected)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if conn, err := ln.Accept(); err == nil {
			defer conn.Close()
			io.Copy(io.Discard, conn)
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	c.attach(conn)
	defer c.Close()

	addr, err := c.LocalAddr()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", addr)
}

func TestSendWhenNotConnected(t *testing.T) {
	c := NewConnection()
	payload := GetStatusHeader
	assert.ErrorIs(t, c.Send(1, &payload, "sender-0", "receiver-0", "ns"), ErrNotConnected)
}

func TestIsLoadFailure(t *testing.T) {
	assert.True(t, IsLoadFailure("LOAD_FAILED"))
	assert.True(t, IsLoadFailure("INVALID_REQUEST"))
	assert.False(t, IsLoadFailure("MEDIA_STATUS"))
}
