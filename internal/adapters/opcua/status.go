// Package opcua reads the run's collection state straight from the press
// PLC.
package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ghalamif/PressFlow/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint        string        `yaml:"endpoint"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	ApplicationName string        `yaml:"application_name"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	// CollectingNode holds a boolean or numeric flag that is non-zero while
	// the PLC is still collecting.
	CollectingNode string `yaml:"collecting_node"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "PressFlow"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.CollectingNode == "" {
		return errors.New("collecting_node is required")
	}
	if _, err := ua.ParseNodeID(c.CollectingNode); err != nil {
		return fmt.Errorf("collecting_node: %w", err)
	}
	return nil
}

type nodeReader interface {
	Read(ctx context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error)
}

// StatusSource polls the collecting flag. The session is opened on first use
// and reused afterwards.
type StatusSource struct {
	cfg    Config
	nodeID *ua.NodeID

	mu     sync.Mutex
	client *opcua.Client
	reader nodeReader
}

func NewStatusSource(cfg Config) (*StatusSource, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nodeID, _ := ua.ParseNodeID(cfg.CollectingNode)
	return &StatusSource{cfg: cfg, nodeID: nodeID}, nil
}

func (s *StatusSource) Status(ctx context.Context, runID string) (ports.RunStatus, error) {
	reader, err := s.connect(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	resp, err := reader.Read(ctx, &ua.ReadRequest{
		MaxAge:             0,
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead: []*ua.ReadValueID{
			{NodeID: s.nodeID, AttributeID: ua.AttributeIDValue},
		},
	})
	if err != nil {
		return "", fmt.Errorf("opcua read %s: %w", s.cfg.CollectingNode, err)
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("opcua read %s: empty result", s.cfg.CollectingNode)
	}
	res := resp.Results[0]
	if res.Status != ua.StatusOK {
		return "", fmt.Errorf("opcua read %s: %s", s.cfg.CollectingNode, res.Status)
	}
	v, ok := variantToFloat(res.Value)
	if !ok {
		return "", fmt.Errorf("opcua read %s: unsupported value %v", s.cfg.CollectingNode, res.Value)
	}
	if v != 0 {
		return ports.StatusRunning, nil
	}
	return ports.StatusComplete, nil
}

func (s *StatusSource) connect(ctx context.Context) (nodeReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		return s.reader, nil
	}

	client, err := opcua.NewClient(s.cfg.Endpoint, s.buildClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect: %w", err)
	}
	s.client = client
	s.reader = client
	return client, nil
}

func (s *StatusSource) Close() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.reader = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Close(ctx)
}

func (s *StatusSource) buildClientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(s.cfg.SecurityPolicy)),
		opcua.ApplicationName(s.cfg.ApplicationName),
		opcua.AutoReconnect(true),
		opcua.RequestTimeout(s.cfg.RequestTimeout),
	}
	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.StatusSource = (*StatusSource)(nil)
