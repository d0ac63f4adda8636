package opcua

import (
	"context"
	"testing"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{EndpointURL: "opc.tcp://plc-1:4840"}
	cfg.ApplyDefaults()

	if cfg.ApplicationName != "OPC Publisher" {
		t.Fatalf("application name = %q", cfg.ApplicationName)
	}
	if cfg.SecurityPolicy != "None" {
		t.Fatalf("security policy = %q, want None", cfg.SecurityPolicy)
	}

	secure := Config{EndpointURL: "opc.tcp://plc-1:4840", UseSecurity: true}
	secure.ApplyDefaults()
	if secure.SecurityPolicy != "Basic256Sha256" {
		t.Fatalf("secure policy = %q, want Basic256Sha256", secure.SecurityPolicy)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (&Config{}).Validate(); err == nil {
		t.Fatal("empty endpoint must fail")
	}
	cert := Config{EndpointURL: "opc.tcp://plc-1:4840", AuthMode: domain.AuthCertificate}
	if err := cert.Validate(); err == nil {
		t.Fatal("certificate auth must be rejected")
	}
	ok := Config{EndpointURL: "opc.tcp://plc-1:4840", AuthMode: domain.AuthUsernamePassword}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestSessionClientDisconnectedState(t *testing.T) {
	c, err := NewSessionClient(Config{EndpointURL: "opc.tcp://plc-1:4840"})
	if err != nil {
		t.Fatalf("NewSessionClient: %v", err)
	}
	if c.Connected() {
		t.Fatal("fresh client must not report connected")
	}
	if _, ok := c.NamespaceIndex("http://factory.example/ua"); ok {
		t.Fatal("namespace lookup must fail while disconnected")
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("closing a never-connected client: %v", err)
	}
}
