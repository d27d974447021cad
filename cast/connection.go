package cast

import (
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/buger/jsonparser"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"

	pb "github.com/stream2cast/stream2cast/cast/proto"
	"github.com/stream2cast/stream2cast/log"
)

const (
	dialerTimeout   = time.Second * 30
	dialerKeepAlive = time.Second * 30

	// Frames larger than this are not valid cast messages.
	maxFrameSize = 64 * 1024
)

var ErrNotConnected = errors.New("not connected to the cast device")

// Conn is the control channel to a cast device.
type Conn interface {
	Start(addr string, port int) error
	MsgChan() chan *pb.CastMessage
	Send(requestID int, payload Payload, sourceID, destinationID, namespace string) error
	LocalAddr() (string, error)
	SetDebug(debug bool)
	Close() error
}

var _ Conn = &Connection{}

type Connection struct {
	conn net.Conn

	// Decoded messages are handed to the owner on this channel. It is
	// closed when the receive loop stops.
	recvMsgChan chan *pb.CastMessage

	writeMu   sync.Mutex
	debugging bool
	connected bool
}

func NewConnection() *Connection {
	return &Connection{
		recvMsgChan: make(chan *pb.CastMessage, 5),
	}
}

func (c *Connection) Start(addr string, port int) error {
	if c.connected {
		return nil
	}
	dialer := &net.Dialer{
		Timeout:   dialerTimeout,
		KeepAlive: dialerKeepAlive,
	}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(addr, fmt.Sprint(port)), &tls.Config{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return errors.Wrapf(err, "unable to connect to chromecast at '%s:%d'", addr, port)
	}
	c.attach(conn)
	return nil
}

func (c *Connection) attach(conn net.Conn) {
	c.conn = conn
	c.connected = true
	go c.receiveLoop()
}

func (c *Connection) MsgChan() chan *pb.CastMessage { return c.recvMsgChan }

func (c *Connection) SetDebug(debug bool) { c.debugging = debug }

// LocalAddr returns the ip of the local end of the control socket. Media
// served from this address is reachable by the device.
func (c *Connection) LocalAddr() (string, error) {
	if c.conn == nil {
		return "", ErrNotConnected
	}
	host, _, err := net.SplitHostPort(c.conn.LocalAddr().String())
	if err != nil {
		return "", errors.Wrap(err, "unable to parse local address")
	}
	return host, nil
}

func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	c.connected = false
	return c.conn.Close()
}

func (c *Connection) debug(message string, args ...interface{}) {
	if c.debugging {
		log.WithField("package", "cast").Debugf(message, args...)
	}
}

func (c *Connection) Send(requestID int, payload Payload, sourceID, destinationID, namespace string) error {
	if !c.connected {
		return ErrNotConnected
	}
	payload.SetRequestId(requestID)
	return c.send(payload, sourceID, destinationID, namespace)
}

func (c *Connection) send(payload Payload, sourceID, destinationID, namespace string) error {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "unable to marshal json payload")
	}
	payloadUtf8 := string(payloadJson)
	message := &pb.CastMessage{
		ProtocolVersion: pb.CastMessage_CASTV2_1_0.Enum(),
		SourceId:        &sourceID,
		DestinationId:   &destinationID,
		Namespace:       &namespace,
		PayloadType:     pb.CastMessage_STRING.Enum(),
		PayloadUtf8:     &payloadUtf8,
	}
	data, err := proto.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "unable to marshal proto payload")
	}

	c.debug("%s -> %s [%s]: %s", sourceID, destinationID, namespace, payloadJson)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := binary.Write(c.conn, binary.BigEndian, uint32(len(data))); err != nil {
		return errors.Wrap(err, "unable to write binary format")
	}
	if _, err := c.conn.Write(data); err != nil {
		return errors.Wrap(err, "unable to send data")
	}
	return nil
}

func (c *Connection) receiveLoop() {
	defer close(c.recvMsgChan)
	for {
		var length uint32
		if err := binary.Read(c.conn, binary.BigEndian, &length); err != nil {
			c.debug("failed to binary read payload: %v", err)
			return
		}
		if length == 0 {
			c.debug("empty payload received")
			continue
		}
		if length > maxFrameSize {
			c.debug("payload of %d bytes exceeds maximum frame size", length)
			return
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			c.debug("failed to read payload: %v", err)
			return
		}

		message := &pb.CastMessage{}
		if err := proto.Unmarshal(payload, message); err != nil {
			c.debug("failed to unmarshal proto cast message '%s': %v", payload, err)
			continue
		}

		c.debug("%s <- %s [%s]: %s", message.GetDestinationId(), message.GetSourceId(), message.GetNamespace(), message.GetPayloadUtf8())

		c.handleMessage(message)
	}
}

func (c *Connection) handleMessage(message *pb.CastMessage) {
	messageType, err := jsonparser.GetString([]byte(message.GetPayloadUtf8()), "type")
	if err != nil {
		c.debug("could not find 'type' key in response message %q: %s", message.GetPayloadUtf8(), err)
		return
	}

	switch messageType {
	case TypePing:
		pong := PongHeader
		if err := c.send(&pong, message.GetDestinationId(), message.GetSourceId(), message.GetNamespace()); err != nil {
			c.debug("unable to respond to 'PING': %v", err)
		}
	default:
		c.recvMsgChan <- message
	}
}
