package nn

import (
	"errors"
	"math"
	"testing"
)

func identityActivation(name string) Activation {
	return Activation{
		Name:  name,
		Func:  func(x float64) float64 { return x },
		Deriv: func(float64) float64 { return 1 },
	}
}

func TestRegisterAndGetActivation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation(Activation{
		Name:  "quad",
		Func:  func(x float64) float64 { return x * x },
		Deriv: func(x float64) float64 { return 2 * x },
	}); err != nil {
		t.Fatalf("register activation: %v", err)
	}
	a, err := GetActivation("quad")
	if err != nil {
		t.Fatalf("get activation: %v", err)
	}
	if got := a.Func(3); got != 9 {
		t.Fatalf("unexpected activation result: got=%f want=9", got)
	}
	if got := a.Deriv(3); got != 6 {
		t.Fatalf("unexpected derivative result: got=%f want=6", got)
	}
}

func TestRegisterActivationValidation(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation(identityActivation("")); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := RegisterActivation(Activation{Name: "nil"}); err == nil {
		t.Fatal("expected nil function error")
	}
	if err := RegisterActivation(Activation{Name: "no-deriv", Func: math.Abs}); err == nil {
		t.Fatal("expected missing derivative error")
	}
}

func TestRegisterActivationDuplicate(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	if err := RegisterActivation(identityActivation("dup")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := RegisterActivation(identityActivation("dup")); !errors.Is(err, ErrActivationExists) {
		t.Fatalf("expected ErrActivationExists, got: %v", err)
	}
}

func TestGetActivationNotFound(t *testing.T) {
	resetActivationRegistryForTests()
	t.Cleanup(resetActivationRegistryForTests)

	_, err := GetActivation("missing")
	if !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got: %v", err)
	}
}

func TestBuiltinDerivativesMatchFiniteDifference(t *testing.T) {
	const h = 1e-6
	for _, name := range []string{"identity", "relu", "tanh", "sigmoid"} {
		a, err := GetActivation(name)
		if err != nil {
			t.Fatalf("get builtin activation %s: %v", name, err)
		}
		for _, x := range []float64{-1.3, -0.2, 0.4, 2.1} {
			numeric := (a.Func(x+h) - a.Func(x-h)) / (2 * h)
			if diff := math.Abs(numeric - a.Deriv(x)); diff > 1e-5 {
				t.Fatalf("%s derivative mismatch at %f: analytic=%f numeric=%f", name, x, a.Deriv(x), numeric)
			}
		}
	}
}

func TestListActivationsSorted(t *testing.T) {
	names := ListActivations()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("activation list not sorted: %+v", names)
		}
	}
}
