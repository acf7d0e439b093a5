package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	gliderssh "github.com/gliderlabs/ssh"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/ssh"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/internal/dom"
	"pkt.systems/courtside/internal/eventbus"
	"pkt.systems/courtside/internal/input"
	"pkt.systems/courtside/internal/logx"
	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

const keepaliveRequest = "keepalive@openssh.com"

// StateReader exposes the latest snapshot shared by every console.
type StateReader interface {
	Current() (schema.Snapshot, bool)
}

// ChannelStatus reports the authority command channel.
type ChannelStatus interface {
	Channel() (connected bool, lastErr string)
}

// LoginAuthStore validates operator SSH credentials.
type LoginAuthStore interface {
	HasLoginPubKey(id schema.OperatorID, key ssh.PublicKey) (bool, error)
	RequiresTOTP(id schema.OperatorID) bool
	ValidateTOTP(id schema.OperatorID, code string) error
}

// Server exposes the operator console over SSH.
type Server struct {
	Addr              string
	HostKeyPath       string
	Listener          net.Listener
	KeepaliveInterval time.Duration
	RenderInterval    time.Duration

	Variant   schema.Variant
	Catalog   dom.Catalog
	Notices   core.NoticeTimings
	Shortcuts []input.Shortcut

	Authority core.Authority
	State     StateReader
	Status    ChannelStatus
	AuthStore LoginAuthStore
	EventBus  *eventbus.Bus
	Clock     clockwork.Clock

	logger pslog.Logger
}

type authContextKey string

const loginPubKeyOK authContextKey = "login-pubkey-ok"

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.AuthStore == nil {
		return errors.New("auth store is required for SSH")
	}
	if s.Authority == nil {
		return schema.ErrChannelUnavailable
	}
	if s.Variant == "" {
		s.Variant = schema.VariantPanel
	}
	if s.Clock == nil {
		s.Clock = clockwork.NewRealClock()
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}
	s.logger.Info("ssh host key", "fingerprint", ssh.FingerprintSHA256(signer.PublicKey()))

	server := &gliderssh.Server{
		Addr:                       s.Addr,
		Handler:                    s.handleSession,
		PublicKeyHandler:           s.handlePublicKey,
		KeyboardInteractiveHandler: s.handleKeyboardInteractive,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handlePublicKey admits operators with a configured key. Operators enrolled
// for TOTP are only marked here and finish in keyboard-interactive.
func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.authLogger(ctx).With("fingerprint", ssh.FingerprintSHA256(key))
	operator := schema.OperatorID(ctx.User())
	if err := schema.ValidateOperatorID(operator); err != nil {
		log.Warn("ssh pubkey rejected", "reason", "invalid operator", "err", err)
		return false
	}
	ok, err := s.AuthStore.HasLoginPubKey(operator, key)
	if err != nil {
		log.Warn("ssh pubkey rejected", "err", err)
		return false
	}
	if !ok {
		log.Warn("ssh pubkey rejected", "reason", "no matching key")
		return false
	}
	if s.AuthStore.RequiresTOTP(operator) {
		ctx.SetValue(loginPubKeyOK, true)
		log.Info("ssh pubkey accepted", "next", "totp")
		return false
	}
	log.Info("ssh pubkey accepted")
	return true
}

func (s *Server) handleKeyboardInteractive(ctx gliderssh.Context, challenger ssh.KeyboardInteractiveChallenge) bool {
	if ctx.Value(loginPubKeyOK) != true {
		return false
	}
	log := s.authLogger(ctx)
	answers, err := challenger(ctx.User(), "", []string{"Verification code: "}, []bool{false})
	if err != nil {
		log.Warn("ssh totp rejected", "reason", "challenge failed", "err", err)
		return false
	}
	if len(answers) != 1 {
		log.Warn("ssh totp rejected", "reason", "invalid answer count", "count", len(answers))
		return false
	}
	if err := s.AuthStore.ValidateTOTP(schema.OperatorID(ctx.User()), answers[0]); err != nil {
		log.Warn("ssh totp rejected", "reason", "invalid code", "err", err)
		return false
	}
	log.Info("ssh totp accepted")
	return true
}

func (s *Server) authLogger(ctx gliderssh.Context) pslog.Logger {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	log = log.With("operator", ctx.User(), "remote", remoteAddr(ctx))
	if id := ctx.SessionID(); id != "" {
		log = log.With("ssh_session", id)
	}
	return log
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

// sessionVariant picks the layout from the session command, falling back
// to the server default.
func (s *Server) sessionVariant(command []string) (schema.Variant, error) {
	if len(command) == 0 {
		return s.Variant, nil
	}
	variant, err := schema.NormalizeVariant(command[0])
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, strings.Join(command, " "))
	}
	return variant, nil
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	operator := schema.OperatorID(sess.User())
	session := schema.SessionID(sess.Context().SessionID())
	log = log.With("operator", operator, "remote", sess.RemoteAddr().String(), "session", session)

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}
	variant, err := s.sessionVariant(sess.Command())
	if err != nil {
		log.Info("ssh session rejected", "reason", "unknown variant", "err", err)
		_, _ = io.WriteString(sess, err.Error()+"\r\n")
		_ = sess.Exit(1)
		return
	}
	log = logx.WithVariant(log, variant)
	ctx := logx.ContextWithSessionLogger(sess.Context(), log, operator, session)

	var events <-chan eventbus.Event
	if s.EventBus != nil {
		var unsubscribe func()
		events, unsubscribe = s.EventBus.Subscribe(session)
		defer unsubscribe()
	}

	ui, err := newTerminalSession(sessionConfig{
		Variant:        variant,
		Catalog:        s.Catalog,
		Notices:        s.Notices,
		Shortcuts:      s.Shortcuts,
		Authority:      s.Authority,
		State:          s.State,
		Status:         s.Status,
		Clock:          s.Clock,
		Events:         events,
		RenderInterval: s.RenderInterval,
		Operator:       operator,
	}, sess)
	if err != nil {
		log.Error("ssh console setup failed", "err", err)
		_, _ = io.WriteString(sess, "console unavailable\r\n")
		_ = sess.Exit(1)
		return
	}
	ui.SetSize(pty.Window.Width, pty.Window.Height)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.keepalive(ctx, cancel, sess)

	log.Info("ssh session opened", "term", pty.Term)
	_ = ui.Run(ctx, sess, winCh)
	log.Info("ssh session closed")
}

// keepalive pings the client and ends the session once it stops answering.
func (s *Server) keepalive(ctx context.Context, cancel context.CancelFunc, sess gliderssh.Session) {
	if s.KeepaliveInterval <= 0 {
		return
	}
	ticker := s.Clock.NewTicker(s.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := sess.SendRequest(keepaliveRequest, true, nil); err != nil {
				pslog.Ctx(ctx).Info("ssh keepalive failed", "err", err)
				cancel()
				return
			}
		}
	}
}
