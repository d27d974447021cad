package application

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/stream2cast/stream2cast/cast"
	pb "github.com/stream2cast/stream2cast/cast/proto"
	"github.com/stream2cast/stream2cast/log"
)

const (
	// 'CC1AD845' seems to be a predefined app; check link
	// https://gist.github.com/jloutsenhizer/8855258
	defaultChromecastAppID = "CC1AD845"
	// Ambient backdrop shown by an otherwise idle device.
	backdropAppID = "E8C28D3C"

	defaultRecv = "receiver-0"

	namespaceConn  = "urn:x-cast:com.google.cast.tp.connection"
	namespaceRecv  = "urn:x-cast:com.google.cast.receiver"
	namespaceMedia = "urn:x-cast:com.google.cast.media"

	defaultRequestTimeout = time.Second * 5
	defaultLoadTimeout    = time.Second * 10
	retryInterval         = time.Second * 2
)

// Application is a client for the receiver and media namespaces of a cast
// device.
type Application struct {
	conn     cast.Conn
	debug    bool
	senderID string

	requestID atomic.Int64
	recvOnce  sync.Once

	resultMu sync.Mutex
	// Internal mapping of request id to result channel
	resultChanMap map[int]chan *pb.CastMessage
	// Closed once the connection stops delivering messages.
	closed chan struct{}

	stateMu sync.RWMutex
	// Current values from the chromecast.
	application *cast.Application // It is possible that there is no current application, can happen for google home.
	media       *cast.Media
	volume      *cast.Volume

	loadTimeout time.Duration
	// Number of connection retries to try before returning
	// and error.
	connectionRetries int
}

type ApplicationOption func(*Application)

func WithConnection(conn cast.Conn) ApplicationOption {
	return func(a *Application) {
		a.conn = conn
	}
}

func WithDebug(debug bool) ApplicationOption {
	return func(a *Application) {
		a.debug = debug
	}
}

// WithLoadTimeout bounds how long Load waits for the device to acknowledge
// the media.
func WithLoadTimeout(timeout time.Duration) ApplicationOption {
	return func(a *Application) {
		a.loadTimeout = timeout
	}
}

func WithConnectionRetries(connectionRetries int) ApplicationOption {
	return func(a *Application) {
		a.connectionRetries = connectionRetries
	}
}

func NewApplication(opts ...ApplicationOption) *Application {
	a := &Application{
		senderID:          "sender-" + uuid.NewString(),
		resultChanMap:     map[int]chan *pb.CastMessage{},
		closed:            make(chan struct{}),
		loadTimeout:       defaultLoadTimeout,
		connectionRetries: 5,
	}

	// Apply options
	for _, o := range opts {
		o(a)
	}
	if a.conn == nil {
		a.conn = cast.NewConnection()
	}
	if a.debug {
		a.conn.SetDebug(true)
	}
	return a
}

func (a *Application) recvMessages(msgs <-chan *pb.CastMessage) {
	defer close(a.closed)
	for msg := range msgs {
		payload := []byte(msg.GetPayloadUtf8())

		// This already gets checked in the cast.Connection.handleMessage function.
		messageType, _ := jsonparser.GetString(payload, "type")
		a.applyStatus(messageType, payload)

		requestID, err := jsonparser.GetInt(payload, "requestId")
		if err != nil || requestID == 0 {
			continue
		}
		a.resultMu.Lock()
		resultChan, ok := a.resultChanMap[int(requestID)]
		a.resultMu.Unlock()
		if ok {
			select {
			case resultChan <- msg:
			default:
			}
		}
	}
}

// applyStatus records the status snapshots broadcast by the device, both
// solicited and unsolicited.
func (a *Application) applyStatus(messageType string, payload []byte) {
	switch messageType {
	case cast.TypeReceiverStatus:
		var resp cast.ReceiverStatusResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			a.log("unable to decode receiver status: %v", err)
			return
		}
		a.stateMu.Lock()
		defer a.stateMu.Unlock()
		if len(resp.Status.Applications) > 1 {
			a.log("more than 1 connected application on the chromecast: (%d)%#v", len(resp.Status.Applications), resp.Status.Applications)
		}
		var current *cast.Application
		// For now just take the last one.
		for i := range resp.Status.Applications {
			current = &resp.Status.Applications[i]
		}
		if current == nil || a.application == nil || current.SessionId != a.application.SessionId {
			a.media = nil
		}
		a.application = current
		a.volume = &resp.Status.Volume
	case cast.TypeMediaStatus:
		var resp cast.MediaStatusResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			a.log("unable to decode media status: %v", err)
			return
		}
		a.stateMu.Lock()
		defer a.stateMu.Unlock()
		for i := range resp.Status {
			a.media = &resp.Status[i]
		}
	}
}

func (a *Application) SetDebug(debug bool) { a.debug = debug; a.conn.SetDebug(debug) }

func (a *Application) Start(addr string, port int) error {
	if err := a.conn.Start(addr, port); err != nil {
		return err
	}
	// The message channel is only fed, and closed, by a started connection.
	a.recvOnce.Do(func() { go a.recvMessages(a.conn.MsgChan()) })
	connect := cast.ConnectHeader
	if err := a.sendDefaultConn(&connect); err != nil {
		return errors.Wrap(err, "unable to connect to chromecast")
	}
	return errors.Wrap(a.Update(), "unable to update application")
}

// Update refreshes the receiver status, and the media status when an
// application is running.
func (a *Application) Update() error {
	var err error
	// Simple retry. We need this for when the device isn't currently
	// available, but it is likely that it will come up soon.
	for i := 0; i < a.connectionRetries; i++ {
		if err = a.getReceiverStatus(); err == nil {
			break
		}
		a.log("error getting receiver status: %v", err)
		a.log("unable to get status from device; attempt %d/%d, retrying...", i+1, a.connectionRetries)
		if i+1 < a.connectionRetries {
			time.Sleep(retryInterval)
		}
	}
	if err != nil {
		return err
	}

	if a.IsIdle() {
		return nil
	}
	if err := a.updateMediaStatus(); err != nil {
		a.log("unable to get media status: %v", err)
	}
	return nil
}

func (a *Application) updateMediaStatus() error {
	connect := cast.ConnectHeader
	if err := a.sendMediaConn(&connect); err != nil {
		return err
	}
	status := cast.GetStatusHeader
	_, err := a.sendAndWaitMediaRecv(&status, defaultRequestTimeout)
	return err
}

func (a *Application) getReceiverStatus() error {
	status := cast.GetStatusHeader
	_, err := a.sendAndWaitDefaultRecv(&status, defaultRequestTimeout)
	return err
}

// Status returns snapshots of the running application, its media and the
// receiver volume. Any of them may be nil.
func (a *Application) Status() (*cast.Application, *cast.Media, *cast.Volume) {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	var (
		app    *cast.Application
		media  *cast.Media
		volume *cast.Volume
	)
	if a.application != nil {
		c := *a.application
		app = &c
	}
	if a.media != nil {
		c := *a.media
		media = &c
	}
	if a.volume != nil {
		c := *a.volume
		volume = &c
	}
	return app, media, volume
}

// IsIdle reports whether the device is showing nothing but its idle screen.
func (a *Application) IsIdle() bool {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.application == nil || a.application.IsIdleScreen || a.application.AppId == backdropAppID
}

func (a *Application) LocalAddr() (string, error) {
	return a.conn.LocalAddr()
}

func (a *Application) Close(stopMedia bool) error {
	if stopMedia {
		closeMedia := cast.CloseHeader
		a.sendMediaConn(&closeMedia)
		closeRecv := cast.CloseHeader
		a.sendDefaultConn(&closeRecv)
	}
	return a.conn.Close()
}

// QuitApp stops the running application, if any.
func (a *Application) QuitApp() error {
	a.stateMu.Lock()
	app := a.application
	a.application = nil
	a.media = nil
	a.stateMu.Unlock()
	if app == nil {
		return nil
	}
	return a.sendDefaultRecv(&cast.StopRequest{
		PayloadHeader: cast.StopHeader,
		SessionId:     app.SessionId,
	})
}

func (a *Application) mediaSessionID() (int, bool) {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	if a.media == nil {
		return 0, false
	}
	return a.media.MediaSessionId, true
}

func (a *Application) Pause() error {
	id, ok := a.mediaSessionID()
	if !ok {
		return ErrNoMediaPause
	}
	return a.sendMediaRecv(&cast.MediaHeader{
		PayloadHeader:  cast.PauseHeader,
		MediaSessionId: id,
	})
}

func (a *Application) Unpause() error {
	id, ok := a.mediaSessionID()
	if !ok {
		return ErrNoMediaUnpause
	}
	return a.sendMediaRecv(&cast.MediaHeader{
		PayloadHeader:  cast.PlayHeader,
		MediaSessionId: id,
	})
}

func (a *Application) StopMedia() error {
	id, ok := a.mediaSessionID()
	if !ok {
		return ErrNoMediaStop
	}
	return a.sendMediaRecv(&cast.MediaHeader{
		PayloadHeader:  cast.StopHeader,
		MediaSessionId: id,
	})
}

func (a *Application) SetVolume(value float32) error {
	if value > 1 || value < 0 {
		return ErrVolumeOutOfRange
	}

	return a.sendDefaultRecv(&cast.SetVolume{
		PayloadHeader: cast.VolumeHeader,
		Volume: cast.Volume{
			Level: &value,
		},
	})
}

// VolumeUp raises the receiver volume by step, capped at 1.
func (a *Application) VolumeUp(step float32) error {
	return a.SetVolume(clamp(a.volumeLevel() + step))
}

// VolumeDown lowers the receiver volume by step, floored at 0.
func (a *Application) VolumeDown(step float32) error {
	return a.SetVolume(clamp(a.volumeLevel() - step))
}

func (a *Application) volumeLevel() float32 {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.volume.LevelOrZero()
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// Load asks the Default Media Receiver to play contentURL. A device that
// does not answer within the load timeout is assumed to be buffering.
func (a *Application) Load(contentURL, contentType string) error {
	if err := a.ensureIsDefaultMediaReceiver(); err != nil {
		return err
	}
	connect := cast.ConnectHeader
	if err := a.sendMediaConn(&connect); err != nil {
		return errors.Wrap(err, "unable to connect to media receiver")
	}

	// Send the command to the chromecast
	reply, err := a.sendAndWaitMediaRecv(&cast.LoadMediaCommand{
		PayloadHeader: cast.LoadHeader,
		CurrentTime:   0,
		Autoplay:      true,
		Media: cast.MediaItem{
			ContentId:   contentURL,
			StreamType:  "BUFFERED",
			ContentType: contentType,
		},
	}, a.loadTimeout)
	if errors.Is(err, ErrRequestTimeout) {
		log.WithField("package", "application").Warnf("no reply to load of %s, assuming it is buffering", contentURL)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "unable to load media")
	}

	messageType, _ := jsonparser.GetString([]byte(reply.GetPayloadUtf8()), "type")
	if cast.IsLoadFailure(messageType) {
		return errors.Wrapf(ErrLoadFailed, "%s for %s", messageType, contentURL)
	}
	return nil
}

func (a *Application) ensureIsDefaultMediaReceiver() error {
	a.stateMu.RLock()
	running := a.application != nil && a.application.AppId == defaultChromecastAppID
	a.stateMu.RUnlock()
	if running {
		return nil
	}

	// Launch replies with a receiver status listing the new application.
	if _, err := a.sendAndWaitDefaultRecv(&cast.LaunchRequest{
		PayloadHeader: cast.LaunchHeader,
		AppId:         defaultChromecastAppID,
	}, a.loadTimeout); err != nil {
		return errors.Wrapf(err, "unable to change to appID %q", defaultChromecastAppID)
	}

	a.stateMu.RLock()
	running = a.application != nil && a.application.AppId == defaultChromecastAppID
	a.stateMu.RUnlock()
	if !running {
		return errors.Wrapf(ErrApplicationNotSet, "device did not start appID %q", defaultChromecastAppID)
	}
	return nil
}

func (a *Application) log(message string, args ...interface{}) {
	if a.debug {
		log.WithField("package", "application").Infof(message, args...)
	}
}

func (a *Application) transportID() (string, error) {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	if a.application == nil {
		return "", ErrApplicationNotSet
	}
	return a.application.TransportId, nil
}

func (a *Application) nextRequestID() int {
	return int(a.requestID.Add(1))
}

func (a *Application) send(payload cast.Payload, destinationID, namespace string) error {
	return a.conn.Send(a.nextRequestID(), payload, a.senderID, destinationID, namespace)
}

func (a *Application) sendAndWait(payload cast.Payload, destinationID, namespace string, timeout time.Duration) (*pb.CastMessage, error) {
	requestID := a.nextRequestID()

	// The result channel is registered before sending so a fast reply
	// cannot be missed.
	resultChan := make(chan *pb.CastMessage, 1)
	a.resultMu.Lock()
	a.resultChanMap[requestID] = resultChan
	a.resultMu.Unlock()
	defer func() {
		a.resultMu.Lock()
		delete(a.resultChanMap, requestID)
		a.resultMu.Unlock()
	}()

	if err := a.conn.Send(requestID, payload, a.senderID, destinationID, namespace); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case result := <-resultChan:
		return result, nil
	case <-timer.C:
		return nil, ErrRequestTimeout
	case <-a.closed:
		return nil, ErrConnectionClosed
	}
}

func (a *Application) sendDefaultConn(payload cast.Payload) error {
	return a.send(payload, defaultRecv, namespaceConn)
}

func (a *Application) sendDefaultRecv(payload cast.Payload) error {
	return a.send(payload, defaultRecv, namespaceRecv)
}

func (a *Application) sendMediaConn(payload cast.Payload) error {
	transportID, err := a.transportID()
	if err != nil {
		return err
	}
	return a.send(payload, transportID, namespaceConn)
}

func (a *Application) sendMediaRecv(payload cast.Payload) error {
	transportID, err := a.transportID()
	if err != nil {
		return err
	}
	return a.send(payload, transportID, namespaceMedia)
}

func (a *Application) sendAndWaitDefaultRecv(payload cast.Payload, timeout time.Duration) (*pb.CastMessage, error) {
	return a.sendAndWait(payload, defaultRecv, namespaceRecv, timeout)
}

func (a *Application) sendAndWaitMediaRecv(payload cast.Payload, timeout time.Duration) (*pb.CastMessage, error) {
	transportID, err := a.transportID()
	if err != nil {
		return nil, err
	}
	return a.sendAndWait(payload, transportID, namespaceMedia, timeout)
}
