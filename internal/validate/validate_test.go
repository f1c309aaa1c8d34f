package validate

import (
	"testing"

	"github.com/kevichi7/bench-sort/internal/apitypes"
)

func validRequest() apitypes.Request {
	return apitypes.Request{
		N:            1000,
		Distribution: apitypes.DistRandom,
		ElemType:     apitypes.ElemI32,
		Repeats:      5,
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	if err := Validate(validRequest(), DefaultLimits()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateRejectsOutOfRangeN(t *testing.T) {
	limits := DefaultLimits()
	cases := []int{0, -1, limits.MaxN + 1}
	for _, n := range cases {
		req := validRequest()
		req.N = n
		if err := Validate(req, limits); err == nil {
			t.Errorf("N=%d: expected error, got nil", n)
		}
	}
}

func TestValidateRejectsUnknownDistAndElemType(t *testing.T) {
	req := validRequest()
	req.Distribution = "not-a-dist"
	if err := Validate(req, DefaultLimits()); err == nil {
		t.Error("expected error for unknown distribution")
	}

	req = validRequest()
	req.ElemType = "not-a-type"
	if err := Validate(req, DefaultLimits()); err == nil {
		t.Error("expected error for unknown elem_type")
	}
}

func TestValidateToleratesUnknownAlgorithmNames(t *testing.T) {
	req := validRequest()
	req.Algorithms = []string{"not_a_real_algorithm"}
	if err := Validate(req, DefaultLimits()); err != nil {
		t.Fatalf("algorithm membership should not be checked here, got %v", err)
	}
}

func TestValidateRejectsNegativeTunables(t *testing.T) {
	limits := DefaultLimits()
	base := validRequest()

	withPct := base
	withPct.PartialShufflePct = 101
	if err := Validate(withPct, limits); err == nil {
		t.Error("expected error for partial_shuffle_pct > 100")
	}

	withDup := base
	withDup.DupValues = -1
	if err := Validate(withDup, limits); err == nil {
		t.Error("expected error for negative dup_values")
	}
}

func TestBuildEngineArgsAppliesDefaultTimeout(t *testing.T) {
	limits := DefaultLimits()
	req := validRequest()
	req.TimeoutMS = 0

	out := BuildEngineArgs(req, limits)
	if out.TimeoutMS != limits.DefaultTimeoutMS {
		t.Errorf("expected default timeout %d, got %d", limits.DefaultTimeoutMS, out.TimeoutMS)
	}
}

func TestBuildEngineArgsClampsOversizedTimeout(t *testing.T) {
	limits := DefaultLimits()
	req := validRequest()
	req.TimeoutMS = limits.DefaultTimeoutMS * 10

	out := BuildEngineArgs(req, limits)
	if out.TimeoutMS != limits.DefaultTimeoutMS {
		t.Errorf("expected clamp to %d, got %d", limits.DefaultTimeoutMS, out.TimeoutMS)
	}
}

func TestBuildEngineArgsDoesNotMutateCaller(t *testing.T) {
	limits := DefaultLimits()
	req := validRequest()
	req.TimeoutMS = 0

	_ = BuildEngineArgs(req, limits)
	if req.TimeoutMS != 0 {
		t.Errorf("BuildEngineArgs must not mutate its input, got TimeoutMS=%d", req.TimeoutMS)
	}
}
