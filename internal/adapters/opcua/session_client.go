// Package opcua adapts gopcua into the session collaborator the
// configuration core consumes: connectivity state and the server's live
// namespace table. Subscription and publish traffic is driven elsewhere.
package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gopcua/opcua"

	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
)

// Config captures the details required to open one endpoint session.
type Config struct {
	EndpointURL     string
	UseSecurity     bool
	AuthMode        domain.AuthMode
	Credential      ports.Credential
	ApplicationName string
	SecurityPolicy  string
}

func (c *Config) ApplyDefaults() {
	if c.ApplicationName == "" {
		c.ApplicationName = "OPC Publisher"
	}
	if c.SecurityPolicy == "" {
		if c.UseSecurity {
			c.SecurityPolicy = "Basic256Sha256"
		} else {
			c.SecurityPolicy = "None"
		}
	}
}

func (c *Config) Validate() error {
	if c.EndpointURL == "" {
		return errors.New("endpoint url is required")
	}
	if c.AuthMode == domain.AuthCertificate {
		return errors.New("certificate authentication is handled outside this adapter")
	}
	return nil
}

// SessionClient owns one gopcua client and the namespace table retrieved
// after connecting.
type SessionClient struct {
	cfg    Config
	mu     sync.Mutex
	client *opcua.Client
	nsIdx  map[string]uint16
}

func NewSessionClient(cfg Config) (*SessionClient, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SessionClient{cfg: cfg}, nil
}

// Connect opens the session and loads the server namespace array. Safe to
// call again after a failure.
func (s *SessionClient) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil && s.client.State() == opcua.Connected {
		return nil
	}

	client, err := opcua.NewClient(s.cfg.EndpointURL, s.buildClientOptions()...)
	if err != nil {
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("opcua connect %s: %w", s.cfg.EndpointURL, err)
	}

	namespaces, err := client.NamespaceArray(ctx)
	if err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("opcua namespace array %s: %w", s.cfg.EndpointURL, err)
	}

	nsIdx := make(map[string]uint16, len(namespaces))
	for i, uri := range namespaces {
		nsIdx[uri] = uint16(i)
	}

	s.client = client
	s.nsIdx = nsIdx
	return nil
}

// Close tears the session down.
func (s *SessionClient) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.nsIdx = nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *SessionClient) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.client.State() == opcua.Connected
}

// NamespaceIndex resolves a namespace URI against the table captured at
// connect time. Returns false while disconnected or for unknown URIs.
func (s *SessionClient) NamespaceIndex(uri string) (uint16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil || s.client.State() != opcua.Connected {
		return 0, false
	}
	idx, ok := s.nsIdx[uri]
	return idx, ok
}

func (s *SessionClient) buildClientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(securityMode(s.cfg.UseSecurity)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(s.cfg.SecurityPolicy)),
		opcua.ApplicationName(s.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}

	if s.cfg.AuthMode == domain.AuthUsernamePassword {
		opts = append(opts, opcua.AuthUsername(s.cfg.Credential.Username, s.cfg.Credential.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	return opts
}

func securityMode(useSecurity bool) string {
	if useSecurity {
		return "SignAndEncrypt"
	}
	return "None"
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" || strings.EqualFold(policy, "none") {
		return "None"
	}
	return policy
}

var _ ports.SessionClient = (*SessionClient)(nil)
