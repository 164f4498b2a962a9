// Copyright 2009 Thomas Jager <mail@jager.no>  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Here's the concurrency design of this package:
Connect() dials, sends the registration commands and spawns 2 goroutines
(readLoop, writeLoop), then returns without waiting for the server's welcome.
readLoop frames lines, parses them and runs the dispatch table, one message at
a time. Outgoing messages are appended to a FIFO queue and return immediately;
writeLoop drains the queue on a timer, as fast as the FloodPreventer allows.

The stop mechanism is to close the (*Connection).end channel (which is only
closed, never sent-on), so every blocking operation in the loops must also
select on `end` to make sure it stops in a timely fashion. Closing `end`
happens exactly once per connection, under stateMutex, in disconnectEnd().
*/

package ircevent

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/goshuirc/eventmgr"
	"golang.org/x/text/encoding"

	"github.com/goshuirc/ircclient/ircmsg"
	"github.com/goshuirc/ircclient/ircreader"
	"github.com/goshuirc/ircclient/ircstate"
)

const (
	Version = "goshuirc/ircclient"

	defaultTimeout     = time.Minute
	defaultMinSendWait = 50 * time.Millisecond
	defaultQuitTimeout = 5 * time.Second
)

type queuedLine struct {
	line     string
	command  string
	queuedAt time.Time
}

// Store returns the connection's view of the network.
func (irc *Connection) Store() *ircstate.Store {
	irc.initOnce.Do(func() {
		irc.store = ircstate.NewStore()
	})
	return irc.store
}

// State returns the current registration state.
func (irc *Connection) State() State {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	return irc.state
}

func (irc *Connection) setState(state State) {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	if irc.state != StateDisconnected {
		irc.state = state
	}
}

// Connected returns true while the transport is open.
func (irc *Connection) Connected() bool {
	return irc.State() >= StateTransportConnected
}

// Registered returns true once the server has welcomed the client.
func (irc *Connection) Registered() bool {
	return irc.State() == StateRegistered
}

// Done returns a channel that is closed when the current connection ends.
// It returns nil before the first Connect.
func (irc *Connection) Done() <-chan struct{} {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	return irc.disconnected
}

// LastError returns the error that ended the last connection, if any.
func (irc *Connection) LastError() error {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	return irc.lastError
}

// Read data from a connection. To be used as a goroutine.
func (irc *Connection) readLoop(socket net.Conn, end chan empty) {
	defer irc.wg.Done()

	reader := ircreader.NewReader(socket, irc.ReceiveBufferSize, irc.Encoding)
	for {
		line, err := reader.ReadLine()
		if err != nil {
			irc.handleSocketError(err, end)
			return
		}
		select {
		case <-end:
			return
		default:
		}
		irc.handleLine(line)
	}
}

// handleLine processes one line received from the server.
func (irc *Connection) handleLine(line string) {
	if irc.Debug {
		irc.Log.Printf("<-- %s\n", line)
	}

	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		irc.Log.Printf("invalid message from server: %v\n", err)
		return
	}
	irc.Metrics.lineReceived(msg.Command)
	irc.emit(EventRawReceived, eventmgr.InfoMap{"line": line, "message": msg})
	irc.dispatch(msg)
}

// Loop to write to a connection. To be used as a goroutine.
func (irc *Connection) writeLoop(socket net.Conn, end chan empty) {
	defer irc.wg.Done()

	var encoder *encoding.Encoder
	if irc.Encoding != nil {
		encoder = irc.Encoding.NewEncoder()
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-end:
			return
		case <-timer.C:
		}

		if err := irc.drainSendQueue(socket, encoder, end); err != nil {
			irc.handleSocketError(err, end)
			return
		}
		timer.Reset(irc.nextSendWait())
	}
}

// nextSendWait is max(flood delay, MinSendWait).
func (irc *Connection) nextSendWait() time.Duration {
	wait := irc.MinSendWait
	if irc.FloodPreventer != nil {
		if delay := irc.FloodPreventer.GetSendDelay(); delay > wait {
			wait = delay
		}
	}
	return wait
}

// drainSendQueue writes queued lines until the queue is empty or the
// FloodPreventer asks for a pause.
func (irc *Connection) drainSendQueue(socket net.Conn, encoder *encoding.Encoder, end chan empty) error {
	for {
		select {
		case <-end:
			return nil
		default:
		}
		if irc.FloodPreventer != nil && irc.FloodPreventer.GetSendDelay() > 0 {
			return nil
		}

		irc.sendMutex.Lock()
		if len(irc.sendQueue) == 0 {
			irc.sendMutex.Unlock()
			return nil
		}
		item := irc.sendQueue[0]
		irc.sendQueue[0] = queuedLine{}
		irc.sendQueue = irc.sendQueue[1:]
		irc.sendMutex.Unlock()

		if irc.Debug {
			irc.Log.Printf("--> %s\n", item.line)
		}

		data := []byte(item.line + "\r\n")
		if encoder != nil {
			encoded, err := encoder.Bytes(data)
			if err != nil {
				irc.Log.Printf("couldn't encode message: %v\n", err)
				continue
			}
			data = encoded
		}

		if irc.Timeout != 0 {
			socket.SetWriteDeadline(time.Now().Add(irc.Timeout))
		}
		_, err := socket.Write(data)
		if irc.Timeout != 0 {
			socket.SetWriteDeadline(time.Time{})
		}
		if err != nil {
			return err
		}

		if irc.FloodPreventer != nil {
			irc.FloodPreventer.HandleMessageSent()
		}
		irc.Metrics.lineSent(item.command, time.Since(item.queuedAt))
		irc.emit(EventRawSent, eventmgr.InfoMap{"line": item.line, "command": item.command})
	}
}

// classifySocketError reports whether err is an ordinary end of the
// connection, as opposed to a failure worth reporting.
func classifySocketError(err error) (isDisconnect bool) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ENOTCONN),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	return false
}

func (irc *Connection) handleSocketError(err error, end chan empty) {
	if classifySocketError(err) {
		irc.disconnectEnd(end, nil)
		return
	}
	select {
	case <-end:
		// errors from our own teardown are not worth reporting
		return
	default:
	}
	irc.Log.Printf("Error, disconnected: %s\n", err)
	irc.emitError(err)
	irc.disconnectEnd(end, err)
}

// Disconnect closes the connection immediately. It is safe to call more
// than once, and from event handlers.
func (irc *Connection) Disconnect() {
	irc.disconnectEnd(nil, nil)
}

// disconnectEnd tears down the connection whose end channel is end, or the
// current one if end is nil. A connection that is still dialing is
// abandoned.
func (irc *Connection) disconnectEnd(end chan empty, cause error) {
	irc.stateMutex.Lock()
	if irc.end == nil || irc.state == StateDisconnected || (end != nil && end != irc.end) {
		irc.stateMutex.Unlock()
		return
	}
	wasConnected := irc.state >= StateTransportConnected
	irc.state = StateDisconnected
	irc.lastError = cause
	close(irc.end)
	if irc.cancelDial != nil {
		irc.cancelDial()
		irc.cancelDial = nil
	}
	socket := irc.socket
	irc.socket = nil
	disconnected := irc.disconnected
	if wasConnected {
		irc.Metrics.setConnected(false)
	}
	irc.stateMutex.Unlock()

	if socket != nil {
		socket.Close()
	}
	if wasConnected {
		info := eventmgr.NewInfoMap()
		if cause != nil {
			info["error"] = cause
		}
		irc.emit(EventDisconnected, info)
	}
	close(disconnected)
}

// Quit sends QUIT and waits up to timeout for the server to close the
// connection. If it doesn't, the connection is closed anyway and
// ServerDidNotQuit is returned. A zero timeout means QuitTimeout.
// RFC 1459 details: https://tools.ietf.org/html/rfc1459#section-4.1.6
func (irc *Connection) Quit(timeout time.Duration, comment string) error {
	irc.stateMutex.Lock()
	state := irc.state
	end := irc.end
	disconnected := irc.disconnected
	irc.quitting = true
	irc.stateMutex.Unlock()

	switch {
	case state == StateDisconnected:
		return ClientDisconnected
	case state < StateTransportConnected:
		// nothing to say goodbye on yet
		irc.disconnectEnd(end, nil)
		return nil
	}
	if timeout <= 0 {
		timeout = irc.QuitTimeout
	}

	var err error
	if comment == "" {
		err = irc.Send("QUIT")
	} else {
		err = irc.Send("QUIT", comment)
	}
	if err != nil {
		return err
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-disconnected:
		return nil
	case <-t.C:
		irc.disconnectEnd(end, ServerDidNotQuit)
		return ServerDidNotQuit
	}
}

func (irc *Connection) isQuitting() bool {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	return irc.quitting
}

// Send queues an IRC message. It returns as soon as the message is queued.
func (irc *Connection) Send(command string, params ...string) error {
	return irc.SendMessage(ircmsg.MakeMessage("", command, params...))
}

// SendMessage queues a built ircmsg.Message.
func (irc *Connection) SendMessage(msg ircmsg.Message) error {
	line, err := msg.Line()
	if err != nil {
		if irc.Debug {
			irc.Log.Printf("couldn't assemble message: %v\n", err)
		}
		return err
	}
	return irc.enqueue(line[:len(line)-2], msg.Command)
}

// SendRaw queues a line as-is, without validation.
func (irc *Connection) SendRaw(line string) error {
	msg, err := ircmsg.ParseLine(line)
	command := msg.Command
	if err != nil {
		command = "RAW"
	}
	return irc.enqueue(line, command)
}

func (irc *Connection) enqueue(line, command string) error {
	irc.stateMutex.Lock()
	running := irc.state != StateDisconnected
	irc.stateMutex.Unlock()
	if !running {
		return ClientDisconnected
	}

	irc.sendMutex.Lock()
	defer irc.sendMutex.Unlock()
	irc.sendQueue = append(irc.sendQueue, queuedLine{line: line, command: command, queuedAt: time.Now()})
	return nil
}

func (irc *Connection) dial(ctx context.Context) (socket net.Conn, err error) {
	dialContext := irc.DialContext
	if dialContext == nil {
		dialContext = (&net.Dialer{}).DialContext
	}
	ctx, cancel := context.WithTimeout(ctx, irc.Timeout)
	defer cancel()
	socket, err = dialContext(ctx, "tcp", irc.Server)
	if err != nil {
		return
	}
	if !irc.UseTLS {
		return
	}

	// see tls.DialWithDialer
	var config *tls.Config
	if irc.TLSConfig == nil {
		config = &tls.Config{}
	} else {
		config = irc.TLSConfig.Clone()
	}
	if config.ServerName == "" && !config.InsecureSkipVerify {
		host, _, err := net.SplitHostPort(irc.Server)
		if err == nil {
			config.ServerName = host
		} else {
			config.ServerName = irc.Server
		}
	}
	if irc.ValidateCertificate != nil {
		config.InsecureSkipVerify = true
		config.VerifyConnection = irc.verifyConnection(config)
	}

	tlsSocket := tls.Client(socket, config)
	err = tlsSocket.HandshakeContext(ctx)
	if err != nil {
		socket.Close()
		return nil, err
	}
	return tlsSocket, nil
}

// verifyConnection runs normal chain verification and lets
// ValidateCertificate have the final say.
func (irc *Connection) verifyConnection(config *tls.Config) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		var verifyErr error
		if len(cs.PeerCertificates) == 0 {
			verifyErr = errors.New("server sent no certificate")
		} else {
			opts := x509.VerifyOptions{
				Roots:         config.RootCAs,
				DNSName:       config.ServerName,
				Intermediates: x509.NewCertPool(),
			}
			for _, cert := range cs.PeerCertificates[1:] {
				opts.Intermediates.AddCert(cert)
			}
			_, verifyErr = cs.PeerCertificates[0].Verify(opts)
		}
		if !irc.ValidateCertificate(cs, verifyErr) {
			return ErrCertificateRejected
		}
		return nil
	}
}

// Connect opens a connection to Server and starts registration. It returns
// once the registration commands are queued; the "registered" event
// follows when the server welcomes the client. Disconnect or Quit during
// the dial abandons it, and Connect returns ClientDisconnected.
// RFC 1459 details: https://tools.ietf.org/html/rfc1459#section-4.1
func (irc *Connection) Connect(ctx context.Context) (err error) {
	if irc.Registration == nil {
		return ErrInvalidRegistration
	}
	if err = irc.Registration.Validate(); err != nil {
		return err
	}
	if _, err = getCommandTable(); err != nil {
		return err
	}

	// Disconnect cancels the dial
	ctx, cancelDial := context.WithCancel(ctx)
	defer cancelDial()

	var end chan empty
	err = func() error {
		irc.stateMutex.Lock()
		defer irc.stateMutex.Unlock()

		if irc.state != StateDisconnected {
			return ErrAlreadyConnected
		}
		if irc.Server == "" {
			return errors.New("No server provided")
		}
		irc.state = StateConnecting
		irc.end = make(chan empty)
		irc.disconnected = make(chan struct{})
		irc.cancelDial = cancelDial
		irc.lastError = nil
		irc.quitting = false
		irc.nickCounter = 0
		irc.welcomeMessage = ""
		irc.yourHostMessage = ""
		irc.serverCreatedMessage = ""
		irc.clientInfoReceived = false
		irc.serverInfo = ServerInfo{}
		irc.motd = ""

		if irc.Log == nil {
			irc.Log = log.New(os.Stdout, "", log.LstdFlags)
		}
		if irc.Timeout == 0 {
			irc.Timeout = defaultTimeout
		}
		if irc.MinSendWait == 0 {
			irc.MinSendWait = defaultMinSendWait
		}
		if irc.QuitTimeout == 0 {
			irc.QuitTimeout = defaultQuitTimeout
		}
		if irc.ReceiveBufferSize == 0 {
			irc.ReceiveBufferSize = ircreader.DefaultBufferSize
		}
		if irc.Version == "" {
			irc.Version = Version
		}
		end = irc.end
		return nil
	}()
	if err != nil {
		return err
	}

	// the loops of a previous connection may still be unwinding;
	// so Connect must not be called from an event handler
	irc.wg.Wait()

	irc.Store().Reset()
	irc.resetCaps()
	irc.replies = replyState{}
	irc.sendMutex.Lock()
	irc.sendQueue = nil
	irc.sendMutex.Unlock()

	if irc.Debug {
		irc.Log.Printf("Connecting to %s (TLS: %t)\n", irc.Server, irc.UseTLS)
	}

	socket, err := irc.dial(ctx)
	if err != nil {
		irc.stateMutex.Lock()
		defer irc.stateMutex.Unlock()
		if irc.end != end || irc.state == StateDisconnected {
			// torn down while dialing
			return ClientDisconnected
		}
		irc.state = StateDisconnected
		irc.lastError = err
		irc.cancelDial = nil
		close(irc.end)
		close(irc.disconnected)
		return err
	}

	if irc.Debug {
		irc.Log.Printf("Connected to %s (%s)\n", irc.Server, socket.RemoteAddr())
	}

	irc.stateMutex.Lock()
	if irc.end != end || irc.state == StateDisconnected {
		irc.stateMutex.Unlock()
		socket.Close()
		return ClientDisconnected
	}
	irc.socket = socket
	irc.state = StateTransportConnected
	irc.cancelDial = nil
	irc.wg.Add(2)
	irc.Metrics.setConnected(true)
	irc.stateMutex.Unlock()

	// queue registration before the loops start, so the welcome cannot
	// overtake it
	if len(irc.RequestCaps) > 0 {
		irc.Send("CAP", "LS", "302")
	}
	irc.setState(StateAwaitingRegistration)
	local := irc.sendRegistration()
	irc.emit(EventConnected, eventmgr.InfoMap{"user": local})

	go irc.readLoop(socket, end)
	go irc.writeLoop(socket, end)
	return nil
}

// sendRegistration queues PASS and NICK+USER or SERVICE, and creates the
// local user.
func (irc *Connection) sendRegistration() *ircstate.User {
	if password := irc.Registration.password(); password != "" {
		irc.Send("PASS", password)
	}

	identity := &ircstate.LocalIdentity{}
	switch reg := irc.Registration.(type) {
	case *UserRegistration:
		realName := reg.RealName
		if realName == "" {
			realName = reg.UserName
		}
		irc.Send("NICK", reg.Nick)
		irc.Send("USER", reg.UserName, reg.modeMask(), "*", realName)
		local := irc.Store().SetLocal(reg.Nick, identity)
		local.Update(func(info *ircstate.UserInfo) {
			info.UserName = reg.UserName
			info.RealName = realName
		})
		return local
	case *ServiceRegistration:
		identity.IsService = true
		identity.ServiceDistribution = reg.Distribution
		identity.ServiceDescription = reg.Description
		distribution := reg.Distribution
		if distribution == "" {
			distribution = "*"
		}
		irc.Send("SERVICE", reg.Nick, "*", distribution, "0", "0", reg.Description)
		return irc.Store().SetLocal(reg.Nick, identity)
	}
	return nil
}

// CurrentNick returns the nick the server knows the client by.
func (irc *Connection) CurrentNick() string {
	if local := irc.Store().LocalUser(); local != nil {
		return local.Nick()
	}
	return ""
}

// WelcomeMessage returns the text of RPL_WELCOME.
func (irc *Connection) WelcomeMessage() string {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	return irc.welcomeMessage
}

// ServerInfo returns what RPL_MYINFO reported, and whether it has arrived.
func (irc *Connection) ServerInfo() (info ServerInfo, received bool) {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	return irc.serverInfo, irc.clientInfoReceived
}

// MessageOfTheDay returns the last MOTD received.
func (irc *Connection) MessageOfTheDay() string {
	irc.stateMutex.Lock()
	defer irc.stateMutex.Unlock()
	return irc.motd
}

// ISupport returns the server features advertised with RPL_ISUPPORT.
func (irc *Connection) ISupport() map[string]string {
	return irc.Store().Features.All()
}
