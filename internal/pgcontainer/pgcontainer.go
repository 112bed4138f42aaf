// Package pgcontainer runs a disposable PostgreSQL server in Docker.
//
// It backs DEV_POSTGRES=true in cmd/server and the PostgreSQL repository
// tests. The container publishes 5432 on a random loopback port and is
// force-removed on Close.
package pgcontainer

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	// Registers the "pgx" driver used to wait for readiness.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const postgresPort = nat.Port("5432/tcp")

// Container is a running PostgreSQL container.
type Container struct {
	cli    *client.Client
	id     string
	url    string
	logger *slog.Logger
}

// Start pulls cfg.Image, starts a container from it and blocks until the
// server accepts connections or cfg.StartTimeout expires.
func Start(ctx context.Context, cfg Config, logger *slog.Logger) (*Container, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.StartTimeout)
	defer cancel()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	// Read everything to block until the pull is complete
	_, _ = io.Copy(io.Discard, reader)
	reader.Close()

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image: cfg.Image,
		Env: []string{
			"POSTGRES_USER=" + cfg.User,
			"POSTGRES_PASSWORD=" + cfg.Password,
			"POSTGRES_DB=" + cfg.Database,
		},
		ExposedPorts: nat.PortSet{postgresPort: struct{}{}},
	}, &container.HostConfig{
		PortBindings: nat.PortMap{
			postgresPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: ""}},
		},
	}, nil, nil, "")
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("ContainerCreate failed: %w", err)
	}

	c := &Container{cli: cli, id: resp.ID, logger: logger}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		c.Close()
		return nil, fmt.Errorf("ContainerStart failed: %w", err)
	}

	hostPort, err := c.hostPort(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.url = (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     "127.0.0.1:" + hostPort,
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=disable",
	}).String()

	if err := waitReady(ctx, c.url); err != nil {
		c.Close()
		return nil, fmt.Errorf("postgres did not become ready: %w", err)
	}

	logger.Info("postgres container ready",
		slog.String("id", c.id[:12]),
		slog.String("port", hostPort),
	)
	return c, nil
}

// URL returns the connection URL of the server.
func (c *Container) URL() string {
	return c.url
}

// Close force-removes the container and closes the docker client.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.cli.ContainerRemove(ctx, c.id, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if err != nil {
		c.logger.Error("failed to remove container", slog.String("id", c.id), slog.String("error", err.Error()))
	}
	if cerr := c.cli.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *Container) hostPort(ctx context.Context) (string, error) {
	inspect, err := c.cli.ContainerInspect(ctx, c.id)
	if err != nil {
		return "", fmt.Errorf("ContainerInspect failed: %w", err)
	}
	if inspect.NetworkSettings == nil {
		return "", fmt.Errorf("container %s has no network settings", c.id)
	}
	bindings := inspect.NetworkSettings.Ports[postgresPort]
	if len(bindings) == 0 || bindings[0].HostPort == "" {
		return "", fmt.Errorf("container %s did not publish %s", c.id, postgresPort)
	}
	return bindings[0].HostPort, nil
}

// waitReady pings the server until it answers. The official image restarts
// the server once after init, so a single successful ping over TCP is enough:
// the init phase only listens on the unix socket.
func waitReady(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(250 * time.Millisecond):
		}
	}
}
