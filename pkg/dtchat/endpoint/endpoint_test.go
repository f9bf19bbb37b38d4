package endpoint

import "testing"

func TestParseUDP(t *testing.T) {
	e, err := Parse("udp://127.0.0.1:7001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Kind != KindDatagramIP {
		t.Fatalf("expected datagram-ip, got %v", e.Kind)
	}
	if !e.IsValid() {
		t.Fatalf("expected valid endpoint")
	}
	if e.String() != "udp://127.0.0.1:7001" {
		t.Fatalf("unexpected display form: %s", e.String())
	}
}

func TestParseBadScheme(t *testing.T) {
	_, err := Parse("carrier-pigeon://nowhere")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseBadFormat(t *testing.T) {
	_, err := Parse("no-scheme-no-space")
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestBundleValidity(t *testing.T) {
	cases := []struct {
		addr  string
		valid bool
	}{
		{"ipn:10.1", true},
		{"ipn:<node>.<service>", false},
		{"not-ipn", false},
		{"ipn:abc.1", false},
		{"ipn:10", false},
	}
	for _, c := range cases {
		e := New(KindBundle, c.addr)
		if got := e.IsValid(); got != c.valid {
			t.Errorf("%s: got valid=%v want %v", c.addr, got, c.valid)
		}
	}
}

func TestBundleIDs(t *testing.T) {
	e := New(KindBundle, "ipn:42.7")
	node, service, ok := e.BundleIDs()
	if !ok || node != 42 || service != 7 {
		t.Fatalf("unexpected parse: node=%d service=%d ok=%v", node, service, ok)
	}
	ionNode, ok := e.IONNode()
	if !ok || ionNode != "42" {
		t.Fatalf("unexpected ion node: %s ok=%v", ionNode, ok)
	}
}

func TestIPInvalidMissingPort(t *testing.T) {
	e := New(KindStreamIP, "127.0.0.1")
	if e.IsValid() {
		t.Fatalf("expected invalid endpoint without a port")
	}
}
