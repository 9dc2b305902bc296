// Package graphsync mirrors built knowledge graphs into Neo4j for ad-hoc
// exploration. It is optional: a nil Client makes every export a no-op.
package graphsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/abhisek/kpath/internal/logger"
)

// Params are the connection settings for Dial.
type Params struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

// Client wraps a Neo4j driver bound to one database.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

// Dial connects and verifies connectivity. An empty URI returns a nil
// Client and no error.
func Dial(ctx context.Context, p Params, log *logger.Logger) (*Client, error) {
	uri := strings.TrimSpace(p.URI)
	if uri == "" {
		return nil, nil
	}
	user := p.User
	if user == "" {
		user = "neo4j"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, p.Password, ""), func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("graphsync: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graphsync: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: p.Database,
		log:      logger.OrNop(log).With("client", "neo4j"),
	}, nil
}

// Close releases the driver. Safe on a nil Client.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
