package env

import "testing"

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("MICROIP_TEST_VALUE", "  console ")
	if got := Get("MICROIP_TEST_VALUE", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	t.Setenv("MICROIP_TEST_VALUE", "   ")
	if got := Get("MICROIP_TEST_VALUE", "json"); got != "json" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
}

func TestFirstHonoursOrder(t *testing.T) {
	t.Setenv("MICROIP_TEST_A", "")
	t.Setenv("MICROIP_TEST_B", "b")
	t.Setenv("MICROIP_TEST_C", "c")
	if got := First("z", "MICROIP_TEST_A", "MICROIP_TEST_B", "MICROIP_TEST_C"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := First("z", "MICROIP_TEST_A"); got != "z" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
