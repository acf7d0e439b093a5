package auth

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/ssh"

	"pkt.systems/courtside/internal/appconfig"
	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

// DefaultIssuer labels enrolled TOTP secrets in authenticator apps.
const DefaultIssuer = "courtside"

// ErrInvalidTOTP is returned when a one-time code does not validate.
var ErrInvalidTOTP = errors.New("invalid totp")

// Operator is a console operator admitted by configuration.
type Operator struct {
	ID           schema.OperatorID
	TOTPSecret   string
	LoginPubKeys []ssh.PublicKey
}

// Store answers authentication questions for configured operators.
type Store struct {
	mu        sync.RWMutex
	operators map[schema.OperatorID]Operator
	log       pslog.Logger
	now       func() time.Time
}

// NewStore builds the store from the operators section of the config.
func NewStore(operators []appconfig.OperatorConfig) (*Store, error) {
	return NewStoreWithLogger(operators, nil)
}

// NewStoreWithLogger builds the store with logging.
func NewStoreWithLogger(operators []appconfig.OperatorConfig, logger pslog.Logger) (*Store, error) {
	store := &Store{
		operators: make(map[schema.OperatorID]Operator, len(operators)),
		log:       logger,
		now:       time.Now,
	}
	for _, cfg := range operators {
		op, err := parseOperator(cfg)
		if err != nil {
			return nil, err
		}
		if _, dup := store.operators[op.ID]; dup {
			return nil, fmt.Errorf("duplicate operator %q", op.ID)
		}
		store.operators[op.ID] = op
	}
	if logger != nil {
		logger.Info("auth store loaded", "operators", len(store.operators))
	}
	return store, nil
}

func parseOperator(cfg appconfig.OperatorConfig) (Operator, error) {
	id := schema.OperatorID(strings.TrimSpace(cfg.Name))
	if err := schema.ValidateOperatorID(id); err != nil {
		return Operator{}, err
	}
	op := Operator{ID: id, TOTPSecret: strings.TrimSpace(cfg.TOTPSecret)}
	for _, raw := range cfg.LoginPubKeys {
		_, key, err := normalizeLoginPubKey(raw)
		if err != nil {
			return Operator{}, fmt.Errorf("operator %q: %w", id, err)
		}
		op.LoginPubKeys = append(op.LoginPubKeys, key)
	}
	return op, nil
}

func (s *Store) lookup(id schema.OperatorID) (Operator, error) {
	s.mu.RLock()
	op, ok := s.operators[id]
	s.mu.RUnlock()
	if !ok {
		return Operator{}, schema.ErrUnknownOperator
	}
	return op, nil
}

// Operators returns the configured operator ids in order.
func (s *Store) Operators() []schema.OperatorID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schema.OperatorID, 0, len(s.operators))
	for id := range s.operators {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// HasLoginPubKey reports whether key is authorized for the operator.
func (s *Store) HasLoginPubKey(id schema.OperatorID, key ssh.PublicKey) (bool, error) {
	op, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	if key == nil {
		return false, nil
	}
	for _, known := range op.LoginPubKeys {
		if bytes.Equal(known.Marshal(), key.Marshal()) {
			return true, nil
		}
	}
	return false, nil
}

// RequiresTOTP reports whether the operator has a second factor configured.
func (s *Store) RequiresTOTP(id schema.OperatorID) bool {
	op, err := s.lookup(id)
	if err != nil {
		return false
	}
	return op.TOTPSecret != ""
}

// ValidateTOTP verifies a one-time code against the operator's secret.
func (s *Store) ValidateTOTP(id schema.OperatorID, code string) error {
	op, err := s.lookup(id)
	if err != nil {
		return err
	}
	if op.TOTPSecret == "" {
		return nil
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), op.TOTPSecret, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		if s.log != nil {
			s.log.Warn("auth totp rejected", "operator", id)
		}
		return ErrInvalidTOTP
	}
	return nil
}

// GenerateTOTP creates a new TOTP secret for an operator.
func GenerateTOTP(id schema.OperatorID, issuer string) (*otp.Key, error) {
	if err := schema.ValidateOperatorID(id); err != nil {
		return nil, err
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: string(id),
	})
}

func normalizeLoginPubKey(raw string) (string, ssh.PublicKey, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil, errors.New("pubkey is required")
	}
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(trimmed))
	if err != nil {
		return "", nil, errors.New("invalid pubkey")
	}
	return trimmed, key, nil
}
