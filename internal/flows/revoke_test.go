package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/sessioncore/jwt"
)

func (h *flowHarness) revokeDeps() RevokeDeps {
	return RevokeDeps{
		DecodeAccess: func(tok string) (*jwt.Claims, error) {
			return h.codec.DecodeKind(tok, jwt.KindAccess)
		},
		Store: h.store,
	}
}

func TestLogoutRevokesEverySession(t *testing.T) {
	h := newFlowHarness(t)
	h.login(t, "42")
	h.login(t, "42")
	access, err := h.issuer.IssueAccessToken("42", "", []string{"buyer"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	res := RunLogout(context.Background(), access.Token, h.revokeDeps())
	if res.Err != nil || res.Revoked != 2 || res.Subject != "42" {
		t.Fatalf("unexpected logout result %+v", res)
	}
	infos, err := RunListSessions(context.Background(), "42", h.revokeDeps())
	if err != nil || len(infos) != 0 {
		t.Fatalf("expected no sessions, got %v err=%v", infos, err)
	}
}

func TestLogoutRejectsRefreshCredential(t *testing.T) {
	h := newFlowHarness(t)
	r := h.login(t, "42")
	res := RunLogout(context.Background(), r.Token, h.revokeDeps())
	if !res.Invalid || !errors.Is(res.Err, jwt.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %+v", res)
	}
}

func TestHealth(t *testing.T) {
	h := newFlowHarness(t)
	if ok, _ := RunHealth(context.Background(), h.revokeDeps()); !ok {
		t.Fatal("expected healthy store")
	}
	h.mr.Close()
	if ok, _ := RunHealth(context.Background(), h.revokeDeps()); ok {
		t.Fatal("expected unhealthy store")
	}
	if ok, _ := RunHealth(context.Background(), RevokeDeps{}); ok {
		t.Fatal("unwired deps must report unhealthy")
	}
}

func TestValidate(t *testing.T) {
	h := newFlowHarness(t)
	access, err := h.issuer.IssueAccessToken("42", "ann@example.com", []string{"seller"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	deps := ValidateDeps{DecodeAccess: h.revokeDeps().DecodeAccess}

	res := RunValidate(access.Token, deps)
	if res.Err != nil || res.Subject != "42" || res.Email != "ann@example.com" {
		t.Fatalf("unexpected validate result %+v", res)
	}

	// Validation is stateless: a dead store does not matter.
	h.mr.Close()
	if res := RunValidate(access.Token, deps); res.Err != nil {
		t.Fatalf("validate must not depend on the store, got %v", res.Err)
	}
}
