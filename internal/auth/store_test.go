package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/ssh"

	"pkt.systems/courtside/internal/appconfig"
	"pkt.systems/courtside/schema"
)

func TestStoreRejectsInvalidOperator(t *testing.T) {
	_, err := NewStore([]appconfig.OperatorConfig{{Name: "Table One"}})
	if !errors.Is(err, schema.ErrInvalidOperator) {
		t.Fatalf("expected ErrInvalidOperator, got %v", err)
	}
}

func TestStoreRejectsInvalidPubKey(t *testing.T) {
	_, err := NewStore([]appconfig.OperatorConfig{{Name: "table", LoginPubKeys: []string{"ssh-ed25519 nope"}}})
	if err == nil || !strings.Contains(err.Error(), "invalid pubkey") {
		t.Fatalf("expected invalid pubkey error, got %v", err)
	}
}

func TestStoreRejectsDuplicateOperator(t *testing.T) {
	_, err := NewStore([]appconfig.OperatorConfig{{Name: "table"}, {Name: "table"}})
	if err == nil {
		t.Fatalf("expected duplicate operator error")
	}
}

func TestStoreLoginPubKeys(t *testing.T) {
	allowed := mustKey(t)
	other := mustKey(t)
	store, err := NewStore([]appconfig.OperatorConfig{{
		Name:         "table",
		LoginPubKeys: []string{strings.TrimSpace(string(ssh.MarshalAuthorizedKey(allowed)))},
	}})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ok, err := store.HasLoginPubKey("table", allowed)
	if err != nil || !ok {
		t.Fatalf("expected key accepted, got %v %v", ok, err)
	}
	ok, err = store.HasLoginPubKey("table", other)
	if err != nil || ok {
		t.Fatalf("expected other key rejected, got %v %v", ok, err)
	}
	if _, err := store.HasLoginPubKey("ghost", allowed); !errors.Is(err, schema.ErrUnknownOperator) {
		t.Fatalf("expected ErrUnknownOperator, got %v", err)
	}
}

func TestStoreTOTP(t *testing.T) {
	key, err := GenerateTOTP("table", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	store, err := NewStore([]appconfig.OperatorConfig{
		{Name: "table", TOTPSecret: key.Secret()},
		{Name: "bench"},
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if !store.RequiresTOTP("table") || store.RequiresTOTP("bench") {
		t.Fatalf("unexpected RequiresTOTP answers")
	}
	if err := store.ValidateTOTP("table", mustTOTP(t, key.Secret())); err != nil {
		t.Fatalf("expected valid code: %v", err)
	}
	if err := store.ValidateTOTP("table", "000000x"); !errors.Is(err, ErrInvalidTOTP) {
		t.Fatalf("expected ErrInvalidTOTP, got %v", err)
	}
	if err := store.ValidateTOTP("bench", ""); err != nil {
		t.Fatalf("operator without secret should pass: %v", err)
	}
	if key.Issuer() != DefaultIssuer || key.AccountName() != "table" {
		t.Fatalf("unexpected key labels %q/%q", key.Issuer(), key.AccountName())
	}
}

func TestStoreOperatorsSorted(t *testing.T) {
	store, err := NewStore([]appconfig.OperatorConfig{{Name: "zeta"}, {Name: "alpha"}})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	got := store.Operators()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Fatalf("unexpected order %v", got)
	}
}

func mustKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return signer.PublicKey()
}

func mustTOTP(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate totp: %v", err)
	}
	return code
}
